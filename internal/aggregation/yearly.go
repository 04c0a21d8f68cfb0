package aggregation

import (
	"context"
	"fmt"
	"log"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// YearlyStore is the storage surface the yearly rollup needs.
type YearlyStore interface {
	MonthlyAggregatesForYear(ctx context.Context, year int, dataset string) ([]database.MonthlyAggregate, error)
	UpsertYearlyAggregates(ctx context.Context, aggregates []database.YearlyAggregate) (int, error)
}

// YearlyAggregator rolls monthly aggregates up into per-cell yearly
// statistics, re-binning cells at its own resolution.
type YearlyAggregator struct {
	store      YearlyStore
	resolution float64
}

// NewYearlyAggregator creates a new yearly aggregator
func NewYearlyAggregator(store YearlyStore, resolution float64) *YearlyAggregator {
	return &YearlyAggregator{store: store, resolution: resolution}
}

// Aggregate builds the yearly aggregates for one year and dataset and
// upserts them. Returns the number of cells written.
func (y *YearlyAggregator) Aggregate(ctx context.Context, year int, dataset string) (int, error) {
	if y.resolution <= 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", y.resolution)
	}
	if year < 1 {
		return 0, fmt.Errorf("year must be positive, got %d", year)
	}

	fmt.Printf("Running yearly aggregation for %d (%s)\n", year, dataset)

	monthlies, err := y.store.MonthlyAggregatesForYear(ctx, year, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load monthly aggregates: %w", err)
	}

	groups := make(map[Cell]*rollup)
	for _, m := range monthlies {
		latBin, lonBin, err := grid.Bin(m.LatBin, m.LonBin, y.resolution)
		if err != nil {
			log.Printf("skipping monthly cell (%v, %v): %v", m.LatBin, m.LonBin, err)
			continue
		}
		cell := Cell{LatBin: latBin, LonBin: lonBin}
		r := groups[cell]
		if r == nil {
			r = newRollup()
			groups[cell] = r
		}
		r.add(m.AvgSSTC, m.MinSSTC, m.MaxSSTC, m.Count)
	}

	aggregates := make([]database.YearlyAggregate, 0, len(groups))
	for _, cell := range sortedCells(groups) {
		s, ok := groups[cell].summarize()
		if !ok {
			continue
		}
		aggregates = append(aggregates, database.YearlyAggregate{
			Year:    year,
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

	written, err := y.store.UpsertYearlyAggregates(ctx, aggregates)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert yearly aggregates: %w", err)
	}

	fmt.Printf("Yearly aggregation completed: %d cells for %d\n", written, year)
	return written, nil
}
