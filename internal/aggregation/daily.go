package aggregation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// DailyStore is the storage surface the daily rollup needs.
type DailyStore interface {
	GridObservationsForDate(ctx context.Context, date time.Time, dataset string) ([]database.GridObservation, error)
	UpsertDailyAggregates(ctx context.Context, aggregates []database.DailyAggregate) (int, error)
}

// DailyAggregator rolls raw grid observations up into per-cell daily
// statistics at a fixed spatial resolution.
type DailyAggregator struct {
	store      DailyStore
	resolution float64
}

// NewDailyAggregator creates a new daily aggregator
func NewDailyAggregator(store DailyStore, resolution float64) *DailyAggregator {
	return &DailyAggregator{store: store, resolution: resolution}
}

// Aggregate builds the daily aggregates for one date and dataset and
// upserts them. Returns the number of cells written. Running it again
// for the same date overwrites the previous result.
func (d *DailyAggregator) Aggregate(ctx context.Context, date time.Time, dataset string) (int, error) {
	if d.resolution <= 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", d.resolution)
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	fmt.Printf("Running daily aggregation for %s (%s)\n", date.Format("2006-01-02"), dataset)

	observations, err := d.store.GridObservationsForDate(ctx, date, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load observations: %w", err)
	}

	groups := make(map[Cell][]float64)
	skipped := 0
	for _, obs := range observations {
		if obs.SSTC == nil {
			continue
		}
		latBin, lonBin, err := grid.Bin(obs.Lat, obs.Lon, d.resolution)
		if err != nil {
			log.Printf("skipping observation at (%v, %v): %v", obs.Lat, obs.Lon, err)
			skipped++
			continue
		}
		cell := Cell{LatBin: latBin, LonBin: lonBin}
		groups[cell] = append(groups[cell], *obs.SSTC)
	}

	aggregates := make([]database.DailyAggregate, 0, len(groups))
	for _, cell := range sortedCells(groups) {
		s, ok := Summarize(groups[cell])
		if !ok {
			continue
		}
		aggregates = append(aggregates, database.DailyAggregate{
			Date:    date,
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

	written, err := d.store.UpsertDailyAggregates(ctx, aggregates)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert daily aggregates: %w", err)
	}

	if skipped > 0 {
		fmt.Printf("Daily aggregation completed: %d cells for %s (%d observations skipped)\n",
			written, date.Format("2006-01-02"), skipped)
	} else {
		fmt.Printf("Daily aggregation completed: %d cells for %s\n", written, date.Format("2006-01-02"))
	}
	return written, nil
}
