package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/query"
)

const (
	batchSize  = 5000
	maxWorkers = 8
)

// MemoryRepository holds yield records in process and answers the same
// queries as the Mongo store, with the same case-insensitive matching.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []models.YieldRecord
	logger  *slog.Logger
}

func NewMemoryRepository(logger *slog.Logger) *MemoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryRepository{logger: logger}
}

func (m *MemoryRepository) SetData(records []models.YieldRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = slices.Clone(records)
}

func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// CSVError reports a cell that could not be parsed. Line is 1-based and
// counts the header.
type CSVError struct {
	Line   int
	Column string
	Err    error
}

func (e *CSVError) Error() string {
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *CSVError) Unwrap() error {
	return e.Err
}

// LoadFromCSV replaces the repository contents with the records of a CSV
// export whose header uses the stored field names. Rows are parsed in
// parallel batches; the first malformed cell aborts the load.
func (m *MemoryRepository) LoadFromCSV(ctx context.Context, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	records, err := m.readCSV(ctx, file)
	observability.ObserveQuery("csv", "load", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	m.SetData(records)
	m.logger.Info("csv records loaded",
		"filename", filename,
		"records", len(records),
		"duration", time.Since(start),
	)
	return nil
}

type csvRow struct {
	line   int
	fields []string
}

func (m *MemoryRepository) readCSV(ctx context.Context, r io.Reader) ([]models.YieldRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := indexColumns(header)
	if _, ok := columns[models.FieldYear]; !ok {
		return nil, fmt.Errorf("header is missing the %s column", models.FieldYear)
	}

	var records []models.YieldRecord
	batch := make([]csvRow, 0, batchSize)
	line := 1

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, csvRow{line: line, fields: fields})
		if len(batch) >= batchSize {
			parsed, err := parseBatch(ctx, batch, columns)
			if err != nil {
				return nil, err
			}
			records = append(records, parsed...)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		parsed, err := parseBatch(ctx, batch, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}

	return records, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return columns
}

// parseBatch converts rows concurrently, keeping their input order.
func parseBatch(ctx context.Context, batch []csvRow, columns map[string]int) ([]models.YieldRecord, error) {
	out := make([]models.YieldRecord, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, row := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := parseRow(row, columns)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRow(row csvRow, columns map[string]int) (models.YieldRecord, error) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row.fields) {
			return ""
		}
		return strings.TrimSpace(row.fields[i])
	}

	rec := models.YieldRecord{
		State:      cell(models.FieldState),
		District:   cell(models.FieldDistrict),
		Block:      cell(models.FieldBlock),
		Village:    cell(models.FieldVillage),
		Quantities: make(map[string]float64, len(crops.All())),
	}

	year, err := strconv.Atoi(cell(models.FieldYear))
	if err != nil {
		return models.YieldRecord{}, &CSVError{Line: row.line, Column: models.FieldYear, Err: err}
	}
	rec.Year = year

	for _, c := range crops.All() {
		v, err := models.ParseQuantity(cell(c.Field))
		if err != nil {
			return models.YieldRecord{}, &CSVError{Line: row.line, Column: c.Field, Err: err}
		}
		rec.Quantities[c.Key] = v
	}
	return rec, nil
}

func (m *MemoryRepository) Find(ctx context.Context, f query.Filter, limit int64) ([]models.YieldRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.YieldRecord, 0)
	for _, rec := range m.records {
		if int64(len(out)) >= limit {
			break
		}
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, ctx.Err()
}

func (m *MemoryRepository) YearlyTotals(ctx context.Context, f query.Filter) ([]models.YearlyTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byYear := make(map[int]*models.YearlyTotals)
	for _, rec := range m.records {
		if !f.Match(rec) {
			continue
		}
		y := byYear[rec.Year]
		if y == nil {
			y = &models.YearlyTotals{Year: rec.Year, Totals: make(map[string]float64)}
			byYear[rec.Year] = y
		}
		for _, c := range crops.All() {
			y.Totals[c.Key] += rec.Quantity(c.Key)
		}
	}

	result := make([]models.YearlyTotals, 0, len(byYear))
	for _, y := range byYear {
		result = append(result, *y)
	}
	slices.SortFunc(result, func(a, b models.YearlyTotals) int {
		return a.Year - b.Year
	})
	return result, ctx.Err()
}

func (m *MemoryRepository) TopVillages(ctx context.Context, c crops.Crop, limit int64) ([]models.VillageTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := make(map[string]float64)
	for _, rec := range m.records {
		groups[rec.Village] += rec.Quantity(c.Key)
	}

	result := make([]models.VillageTotal, 0, len(groups))
	for village, total := range groups {
		result = append(result, models.VillageTotal{Village: village, Total: total})
	}
	slices.SortFunc(result, func(a, b models.VillageTotal) int {
		if a.Total > b.Total {
			return -1
		}
		if a.Total < b.Total {
			return 1
		}
		return strings.Compare(a.Village, b.Village)
	})

	if int64(len(result)) > limit {
		result = result[:limit]
	}
	return result, ctx.Err()
}

func (m *MemoryRepository) Distinct(ctx context.Context, field string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, rec := range m.records {
		if v := rec.Field(field); v != "" {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)
	return values, ctx.Err()
}

func (m *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
