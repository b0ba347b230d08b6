package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/query"
)

const (
	// Converted values are staged under this field before grouping.
	convertedField = "_qty"
	malformedField = "_malformed"
	yearKey        = "year"
)

// quantityExpr converts a stored quantity to a double the way
// models.ParseQuantity does. Missing, null and blank values are 0,
// thousands separators are dropped, and anything else that is not a number
// becomes null so the group can count it as malformed.
func quantityExpr(path string) bson.D {
	cleaned := bson.D{{Key: "$replaceAll", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: "$$v"}}}}},
		{Key: "find", Value: ","},
		{Key: "replacement", Value: ""},
	}}}
	fromString := bson.D{{Key: "$let", Value: bson.D{
		{Key: "vars", Value: bson.D{{Key: "s", Value: cleaned}}},
		{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$$s", ""}}},
			0.0,
			bson.D{{Key: "$convert", Value: bson.D{
				{Key: "input", Value: "$$s"},
				{Key: "to", Value: "double"},
				{Key: "onError", Value: nil},
			}}},
		}}}},
	}}}

	return typeSwitch(path,
		bson.D{{Key: "$toDouble", Value: "$$v"}},
		0.0,
		fromString,
	)
}

// yearExpr converts a stored year to an int so 2020 and "2020" group
// together. Unparsable or missing years become null.
func yearExpr(path string) bson.D {
	fromString := bson.D{{Key: "$convert", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: "$$v"}}}}},
		{Key: "to", Value: "int"},
		{Key: "onError", Value: nil},
	}}}
	return typeSwitch(path,
		bson.D{{Key: "$toInt", Value: "$$v"}},
		nil,
		fromString,
	)
}

// typeSwitch binds path to $$v and picks a conversion by its BSON type.
// Types other than number, string and absent yield null.
func typeSwitch(path string, fromNumber, absent, fromString interface{}) bson.D {
	vType := bson.D{{Key: "$type", Value: "$$v"}}
	return bson.D{{Key: "$let", Value: bson.D{
		{Key: "vars", Value: bson.D{{Key: "v", Value: path}}},
		{Key: "in", Value: bson.D{{Key: "$switch", Value: bson.D{
			{Key: "branches", Value: bson.A{
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$isNumber", Value: "$$v"}}},
					{Key: "then", Value: fromNumber},
				},
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$in", Value: bson.A{vType, bson.A{"missing", "null", "undefined"}}}}},
					{Key: "then", Value: absent},
				},
				bson.D{
					{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{vType, "string"}}}},
					{Key: "then", Value: fromString},
				},
			}},
			{Key: "default", Value: nil},
		}}}},
	}}}
}

func convertedPath(key string) string {
	return "$" + convertedField + "." + key
}

// countNulls sums 1 for every grouped document in which any of paths is
// null.
func countNulls(paths bson.A) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$in", Value: bson.A{nil, paths}}},
		1,
		0,
	}}}}}
}

// YearlyTotalsPipeline groups matching records by Year, summing every crop
// into its Total_<Name> field, ascending by year. Stored years and
// quantities are converted to numbers first; groups report how many
// records held values that could not be converted.
func YearlyTotalsPipeline(f query.Filter) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if !f.IsEmpty() {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: f.Predicate()}})
	}

	all := crops.All()
	converted := bson.D{{Key: yearKey, Value: yearExpr("$" + models.FieldYear)}}
	checked := bson.A{convertedPath(yearKey)}
	for _, c := range all {
		converted = append(converted, bson.E{Key: c.Key, Value: quantityExpr(c.FieldPath())})
		checked = append(checked, convertedPath(c.Key))
	}

	group := bson.D{{Key: "_id", Value: convertedPath(yearKey)}}
	for _, c := range all {
		group = append(group, bson.E{Key: c.TotalField(), Value: bson.D{{Key: "$sum", Value: convertedPath(c.Key)}}})
	}
	group = append(group, bson.E{Key: malformedField, Value: countNulls(checked)})

	return append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.D{{Key: convertedField, Value: converted}}}},
		bson.D{{Key: "$group", Value: group}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
}

// TopVillagesPipeline ranks villages by their summed quantity of one crop
// across all records, ties broken by village name. Villages holding
// malformed values sort first so the ranking cannot hide them.
func TopVillagesPipeline(c crops.Crop, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$addFields", Value: bson.D{{Key: convertedField, Value: bson.D{
			{Key: c.Key, Value: quantityExpr(c.FieldPath())},
		}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + models.FieldVillage},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: convertedPath(c.Key)}}},
			{Key: malformedField, Value: countNulls(bson.A{convertedPath(c.Key)})},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: malformedField, Value: -1},
			{Key: "total", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
}

// checkMalformed fails when a group counted unconvertible values.
func checkMalformed(raw bson.Raw, group string) error {
	n, err := models.RawNumber(raw.Lookup(malformedField))
	if err != nil {
		return fmt.Errorf("%s: %w", malformedField, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d records in %s", models.ErrMalformedQuantity, int(n), group)
	}
	return nil
}

func decodeYearlyTotals(raw bson.Raw) (models.YearlyTotals, error) {
	if err := checkMalformed(raw, "year "+models.RawString(raw.Lookup("_id"))); err != nil {
		return models.YearlyTotals{}, err
	}
	year, err := models.RawNumber(raw.Lookup("_id"))
	if err != nil {
		return models.YearlyTotals{}, fmt.Errorf("year: %w", err)
	}

	all := crops.All()
	out := models.YearlyTotals{Year: int(year), Totals: make(map[string]float64, len(all))}
	for _, c := range all {
		v, err := models.RawNumber(raw.Lookup(c.TotalField()))
		if err != nil {
			return models.YearlyTotals{}, fmt.Errorf("%s: %w", c.TotalField(), err)
		}
		out.Totals[c.Key] = v
	}
	return out, nil
}

func decodeVillageTotal(raw bson.Raw) (models.VillageTotal, error) {
	if err := checkMalformed(raw, "village "+models.RawString(raw.Lookup("_id"))); err != nil {
		return models.VillageTotal{}, err
	}
	total, err := models.RawNumber(raw.Lookup("total"))
	if err != nil {
		return models.VillageTotal{}, fmt.Errorf("total: %w", err)
	}
	return models.VillageTotal{
		Village: models.RawString(raw.Lookup("_id")),
		Total:   total,
	}, nil
}
