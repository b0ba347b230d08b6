package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"agri-dashboard/internal/crops"
)

// Grouping keys of a yield record as stored in the collection.
const (
	FieldState    = "State"
	FieldDistrict = "District"
	FieldBlock    = "Block"
	FieldVillage  = "Village"
	FieldYear     = "Year"
)

var ErrMalformedQuantity = errors.New("malformed quantity")

// YieldRecord is one row of crop quantities for a village and year.
// Quantities is keyed by crop key.
type YieldRecord struct {
	State      string
	District   string
	Block      string
	Village    string
	Year       int
	Quantities map[string]float64
}

func (r YieldRecord) Quantity(cropKey string) float64 {
	return r.Quantities[cropKey]
}

// Field returns the value of a grouping key by its stored name.
func (r YieldRecord) Field(name string) string {
	switch name {
	case FieldState:
		return r.State
	case FieldDistrict:
		return r.District
	case FieldBlock:
		return r.Block
	case FieldVillage:
		return r.Village
	case FieldYear:
		return strconv.Itoa(r.Year)
	}
	return ""
}

// UnmarshalBSON decodes a stored record. Crop quantities are looked up
// under their bilingual labels; numeric strings may carry thousands
// separators.
func (r *YieldRecord) UnmarshalBSON(data []byte) error {
	raw := bson.Raw(data)

	r.State = RawString(raw.Lookup(FieldState))
	r.District = RawString(raw.Lookup(FieldDistrict))
	r.Block = RawString(raw.Lookup(FieldBlock))
	r.Village = RawString(raw.Lookup(FieldVillage))

	year, err := RawNumber(raw.Lookup(FieldYear))
	if err != nil {
		return fmt.Errorf("field %q: %w", FieldYear, err)
	}
	r.Year = int(year)

	all := crops.All()
	r.Quantities = make(map[string]float64, len(all))
	for _, c := range all {
		v, err := RawNumber(raw.Lookup(c.Field))
		if err != nil {
			return fmt.Errorf("field %q: %w", c.Field, err)
		}
		r.Quantities[c.Key] = v
	}
	return nil
}

// MarshalBSON writes the record back in its stored shape.
func (r YieldRecord) MarshalBSON() ([]byte, error) {
	doc := bson.D{
		{Key: FieldState, Value: r.State},
		{Key: FieldDistrict, Value: r.District},
		{Key: FieldBlock, Value: r.Block},
		{Key: FieldVillage, Value: r.Village},
		{Key: FieldYear, Value: r.Year},
	}
	for _, c := range crops.All() {
		doc = append(doc, bson.E{Key: c.Field, Value: r.Quantities[c.Key]})
	}
	return bson.Marshal(doc)
}

// ParseQuantity parses a numeric cell such as "1,234.5". Blank cells are
// zero.
func ParseQuantity(s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedQuantity, s)
	}
	return v, nil
}

// RawNumber converts a stored numeric value to float64. Missing and null
// values are zero.
func RawNumber(v bson.RawValue) (float64, error) {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return 0, nil
	case bsontype.Int32:
		return float64(v.Int32()), nil
	case bsontype.Int64:
		return float64(v.Int64()), nil
	case bsontype.Double:
		return v.Double(), nil
	case bsontype.Decimal128:
		return ParseQuantity(v.Decimal128().String())
	case bsontype.String:
		return ParseQuantity(v.StringValue())
	}
	return 0, fmt.Errorf("%w: unexpected type %s", ErrMalformedQuantity, v.Type)
}

// RawString renders a stored grouping key as text. Other types are empty.
func RawString(v bson.RawValue) string {
	switch v.Type {
	case bsontype.String:
		return v.StringValue()
	case bsontype.Int32:
		return strconv.Itoa(int(v.Int32()))
	case bsontype.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case bsontype.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	}
	return ""
}
