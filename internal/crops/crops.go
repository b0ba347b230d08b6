package crops

import (
	"errors"
	"fmt"
)

var ErrUnknownCrop = errors.New("unknown crop")

// Crop describes one of the tracked tree crops. Field is the label the
// quantity is stored under in each yield record.
type Crop struct {
	Key     string
	Name    string
	Field   string
	Display string
}

// TotalField is the name the crop's per-year sum is emitted under by the
// yearly aggregation.
func (c Crop) TotalField() string {
	return "Total_" + c.Name
}

// FieldPath is the aggregation expression referencing the stored field.
func (c Crop) FieldPath() string {
	return "$" + c.Field
}

var table = []Crop{
	{Key: "mango", Name: "Mango", Field: "Mango (કેરી)", Display: "Mango (કેરી)"},
	{Key: "lemon", Name: "Lemon", Field: "Lemon (લીંબુ)", Display: "Lemon (લીંબુ)"},
	{Key: "chiku", Name: "Chiku", Field: "Chiku (ચીકુ)", Display: "Chiku (ચીકુ)"},
	{Key: "guava", Name: "Guava", Field: "Guava (જમરૂખ)", Display: "Guava (જમરૂખ)"},
	{Key: "saag", Name: "Saag", Field: "Saag (સાગ)", Display: "Saag (સાગ)"},
	{Key: "aamala", Name: "Aamala", Field: "Aamala (આમળાં)", Display: "Aamala (આમળાં)"},
	{Key: "mahuda", Name: "Mahuda", Field: "Mahuda (મહુડો)", Display: "Mahuda (મહુડો)"},
	{Key: "neem", Name: "Neem", Field: "Neem (લીમડો)", Display: "Neem (લીમડો)"},
}

var byKey = func() map[string]Crop {
	m := make(map[string]Crop, len(table))
	for _, c := range table {
		m[c.Key] = c
	}
	return m
}()

// All returns the crops in display order. The slice is a copy.
func All() []Crop {
	out := make([]Crop, len(table))
	copy(out, table)
	return out
}

func Lookup(key string) (Crop, error) {
	c, ok := byKey[key]
	if !ok {
		return Crop{}, fmt.Errorf("%w: %q", ErrUnknownCrop, key)
	}
	return c, nil
}

func Keys() []string {
	keys := make([]string, len(table))
	for i, c := range table {
		keys[i] = c.Key
	}
	return keys
}
