package models

import "agri-dashboard/internal/crops"

// YearlyTotals holds the per-crop sums for one year, keyed by crop key.
type YearlyTotals struct {
	Year   int                `json:"year"`
	Totals map[string]float64 `json:"totals"`
}

func (y YearlyTotals) Total(cropKey string) float64 {
	return y.Totals[cropKey]
}

// GrandTotal sums all eight crops for the year.
func (y YearlyTotals) GrandTotal() float64 {
	var sum float64
	for _, c := range crops.All() {
		sum += y.Totals[c.Key]
	}
	return sum
}

type VillageTotal struct {
	Village string  `json:"village"`
	Total   float64 `json:"total"`
}

type CropSeries struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	Display string    `json:"display"`
	Values  []float64 `json:"values"`
	Overall float64   `json:"overall"`
}

// ChartSummary is the analysis view of a yearly aggregation: one series
// per crop aligned with Years, plus the per-year total across crops.
type ChartSummary struct {
	Years       []int        `json:"years"`
	Series      []CropSeries `json:"series"`
	GrandTotals []float64    `json:"grand_totals"`
}

// FilterOptions maps a grouping field to its distinct values.
type FilterOptions map[string][]string
