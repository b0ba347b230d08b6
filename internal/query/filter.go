package query

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agri-dashboard/internal/models"
)

// Form field names accepted by the filterable views.
const (
	ParamDistrict = "district"
	ParamBlock    = "block"
	ParamVillage  = "village"
	ParamState    = "state"
)

// MaxValueLength bounds each submitted filter value.
const MaxValueLength = 100

var ErrInvalidFilter = errors.New("invalid filter")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Filter is a set of optional grouping-key constraints. An empty value
// imposes no constraint.
type Filter struct {
	District string `json:"district,omitempty" validate:"max=100"`
	Block    string `json:"block,omitempty" validate:"max=100"`
	Village  string `json:"village,omitempty" validate:"max=100"`
	State    string `json:"state,omitempty" validate:"max=100"`
}

// Validate checks value lengths. The error names the first offending
// param and wraps ErrInvalidFilter.
func (f Filter) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidFilter, strings.ToLower(fe.Field()), MaxValueLength)
	}
	return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
}

// FromValues reads the named params from form values and ignores the rest.
func FromValues(values url.Values, params ...string) Filter {
	var f Filter
	for _, p := range params {
		v := strings.TrimSpace(values.Get(p))
		switch p {
		case ParamDistrict:
			f.District = v
		case ParamBlock:
			f.Block = v
		case ParamVillage:
			f.Village = v
		case ParamState:
			f.State = v
		}
	}
	return f
}

func (f Filter) clauses() []bson.E {
	var out []bson.E
	add := func(field, value string) {
		if value != "" {
			out = append(out, bson.E{Key: field, Value: value})
		}
	}
	add(models.FieldDistrict, f.District)
	add(models.FieldBlock, f.Block)
	add(models.FieldVillage, f.Village)
	add(models.FieldState, f.State)
	return out
}

// Predicate returns an exact-equality document over the supplied fields.
// Case-insensitivity comes from running it under Collation.
func (f Filter) Predicate() bson.D {
	clauses := f.clauses()
	if len(clauses) == 0 {
		return bson.D{}
	}
	return bson.D(clauses)
}

func (f Filter) IsEmpty() bool {
	return len(f.clauses()) == 0
}

// Fields lists the stored field names the filter constrains, sorted.
func (f Filter) Fields() []string {
	clauses := f.clauses()
	names := make([]string, len(clauses))
	for i, c := range clauses {
		names[i] = c.Key
	}
	sort.Strings(names)
	return names
}

// Match reports whether rec satisfies the filter, comparing without
// regard to letter case.
func (f Filter) Match(rec models.YieldRecord) bool {
	for _, c := range f.clauses() {
		if !strings.EqualFold(rec.Field(c.Key), c.Value.(string)) {
			return false
		}
	}
	return true
}

// Values returns the filter as form values, for links and SSE requests.
func (f Filter) Values() url.Values {
	v := url.Values{}
	set := func(param, value string) {
		if value != "" {
			v.Set(param, value)
		}
	}
	set(ParamDistrict, f.District)
	set(ParamBlock, f.Block)
	set(ParamVillage, f.Village)
	set(ParamState, f.State)
	return v
}

// Collation makes string equality ignore case (strength 2 compares base
// letters and accents only).
func Collation() *options.Collation {
	return &options.Collation{Locale: "en", Strength: 2}
}

// Submitted reports whether a request carried any of the params, which is
// how GET requests opt into filtered results.
func Submitted(values url.Values, params ...string) bool {
	for _, p := range params {
		if _, ok := values[p]; ok {
			return true
		}
	}
	return false
}

// StoredField maps a form param to the grouping key it constrains.
func StoredField(param string) string {
	switch param {
	case ParamDistrict:
		return models.FieldDistrict
	case ParamBlock:
		return models.FieldBlock
	case ParamVillage:
		return models.FieldVillage
	case ParamState:
		return models.FieldState
	}
	return ""
}

// Get returns the value supplied for a form param.
func (f Filter) Get(param string) string {
	switch param {
	case ParamDistrict:
		return f.District
	case ParamBlock:
		return f.Block
	case ParamVillage:
		return f.Village
	case ParamState:
		return f.State
	}
	return ""
}
