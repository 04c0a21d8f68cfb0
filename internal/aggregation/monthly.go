package aggregation

import (
	"context"
	"fmt"
	"log"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// MonthlyStore is the storage surface the monthly rollup needs.
type MonthlyStore interface {
	DailyAggregatesForMonth(ctx context.Context, year, month int, dataset string) ([]database.DailyAggregate, error)
	UpsertMonthlyAggregates(ctx context.Context, aggregates []database.MonthlyAggregate) (int, error)
}

// MonthlyAggregator rolls daily aggregates up into per-cell monthly
// statistics, re-binning cells at its own resolution. The monthly
// mean is a mean of daily means, not a sample-weighted mean; min and
// max carry the true extremes and count the total sample size.
type MonthlyAggregator struct {
	store      MonthlyStore
	resolution float64
}

// NewMonthlyAggregator creates a new monthly aggregator
func NewMonthlyAggregator(store MonthlyStore, resolution float64) *MonthlyAggregator {
	return &MonthlyAggregator{store: store, resolution: resolution}
}

// Aggregate builds the monthly aggregates for one calendar month and
// dataset and upserts them. Returns the number of cells written.
func (m *MonthlyAggregator) Aggregate(ctx context.Context, year, month int, dataset string) (int, error) {
	if m.resolution <= 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", m.resolution)
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 {
		return 0, fmt.Errorf("year must be positive, got %d", year)
	}

	fmt.Printf("Running monthly aggregation for %04d-%02d (%s)\n", year, month, dataset)

	dailies, err := m.store.DailyAggregatesForMonth(ctx, year, month, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily aggregates: %w", err)
	}

	groups := make(map[Cell]*rollup)
	for _, d := range dailies {
		latBin, lonBin, err := grid.Bin(d.LatBin, d.LonBin, m.resolution)
		if err != nil {
			log.Printf("skipping daily cell (%v, %v): %v", d.LatBin, d.LonBin, err)
			continue
		}
		cell := Cell{LatBin: latBin, LonBin: lonBin}
		r := groups[cell]
		if r == nil {
			r = newRollup()
			groups[cell] = r
		}
		r.add(d.AvgSSTC, d.MinSSTC, d.MaxSSTC, d.Count)
	}

	aggregates := make([]database.MonthlyAggregate, 0, len(groups))
	for _, cell := range sortedCells(groups) {
		s, ok := groups[cell].summarize()
		if !ok {
			continue
		}
		aggregates = append(aggregates, database.MonthlyAggregate{
			Year:    year,
			Month:   month,
			LatBin:  cell.LatBin,
			LonBin:  cell.LonBin,
			AvgSSTC: s.Mean,
			MinSSTC: s.Min,
			MaxSSTC: s.Max,
			StdSSTC: s.Std,
			Count:   s.Count,
			Dataset: dataset,
		})
	}

	written, err := m.store.UpsertMonthlyAggregates(ctx, aggregates)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert monthly aggregates: %w", err)
	}

	fmt.Printf("Monthly aggregation completed: %d cells for %04d-%02d\n", written, year, month)
	return written, nil
}
