package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/query"
)

const (
	ListingLimit     = 50
	FilteredLimit    = 25
	TopVillagesLimit = 10
)

var ErrNoRecords = errors.New("no yield records match the selected filters")

// Repository is the read-only view of the yield record collection.
type Repository interface {
	Find(ctx context.Context, f query.Filter, limit int64) ([]models.YieldRecord, error)
	YearlyTotals(ctx context.Context, f query.Filter) ([]models.YearlyTotals, error)
	TopVillages(ctx context.Context, c crops.Crop, limit int64) ([]models.VillageTotal, error)
	Distinct(ctx context.Context, field string) ([]string, error)
	Ping(ctx context.Context) error
}

type Reports struct {
	repo   Repository
	logger *slog.Logger
}

func NewReports(repo Repository, logger *slog.Logger) *Reports {
	return &Reports{repo: repo, logger: logger}
}

// Listing returns the first page of records with no filter applied.
func (s *Reports) Listing(ctx context.Context) ([]models.YieldRecord, error) {
	return s.repo.Find(ctx, query.Filter{}, ListingLimit)
}

func (s *Reports) Filtered(ctx context.Context, f query.Filter) ([]models.YieldRecord, error) {
	return s.repo.Find(ctx, f, FilteredLimit)
}

// YearlySummary returns per-crop totals for each year, ascending.
func (s *Reports) YearlySummary(ctx context.Context, f query.Filter) ([]models.YearlyTotals, error) {
	return s.repo.YearlyTotals(ctx, f)
}

// Analysis returns the yearly totals together with their chart summary.
// It fails with ErrNoRecords when nothing matches f.
func (s *Reports) Analysis(ctx context.Context, f query.Filter) ([]models.YearlyTotals, models.ChartSummary, error) {
	totals, err := s.repo.YearlyTotals(ctx, f)
	if err != nil {
		return nil, models.ChartSummary{}, err
	}
	if len(totals) == 0 {
		return nil, models.ChartSummary{}, ErrNoRecords
	}
	return totals, Summarize(totals), nil
}

// TopVillages validates cropKey before running the ranking; an unknown key
// returns crops.ErrUnknownCrop and never reaches the repository.
func (s *Reports) TopVillages(ctx context.Context, cropKey string) (crops.Crop, []models.VillageTotal, error) {
	c, err := crops.Lookup(cropKey)
	if err != nil {
		return crops.Crop{}, nil, err
	}
	ranking, err := s.repo.TopVillages(ctx, c, TopVillagesLimit)
	if err != nil {
		return c, nil, err
	}
	return c, ranking, nil
}

// Options fetches the distinct values of each field for the filter
// dropdowns. Lookups run concurrently.
func (s *Reports) Options(ctx context.Context, fields ...string) (models.FilterOptions, error) {
	results := make([][]string, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			values, err := s.repo.Distinct(gctx, field)
			if err != nil {
				return fmt.Errorf("distinct %s: %w", field, err)
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := make(models.FilterOptions, len(fields))
	for i, field := range fields {
		opts[field] = results[i]
	}
	s.logger.Debug("loaded filter options", "fields", fields)
	return opts, nil
}

func (s *Reports) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Summarize turns ascending yearly totals into chart series: one value per
// year for each crop, the per-year total across crops, and each crop's
// overall sum.
func Summarize(totals []models.YearlyTotals) models.ChartSummary {
	all := crops.All()
	summary := models.ChartSummary{
		Years:       make([]int, len(totals)),
		Series:      make([]models.CropSeries, len(all)),
		GrandTotals: make([]float64, len(totals)),
	}

	for j, c := range all {
		summary.Series[j] = models.CropSeries{
			Key:     c.Key,
			Name:    c.Name,
			Display: c.Display,
			Values:  make([]float64, len(totals)),
		}
	}

	for i, y := range totals {
		summary.Years[i] = y.Year
		summary.GrandTotals[i] = y.GrandTotal()
		for j, c := range all {
			v := y.Total(c.Key)
			summary.Series[j].Values[i] = v
			summary.Series[j].Overall += v
		}
	}
	return summary
}
