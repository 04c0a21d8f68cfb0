package anomaly

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/oceanobs/sst-server/internal/aggregation"
	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// Store is the storage surface the anomaly engine needs.
type Store interface {
	MonthlyAggregatesForYear(ctx context.Context, year int, dataset string) ([]database.MonthlyAggregate, error)
	BaselinesForPeriod(ctx context.Context, periodStart, periodEnd int, dataset string) ([]database.ClimateBaseline, error)
	UpsertTemperatureAnomalies(ctx context.Context, anomalies []database.TemperatureAnomaly) (int, error)
}

// Engine computes monthly temperature anomalies against a baseline
// climatology. Monthly cells keep their own bins in the output; each
// one is matched to the baseline cell containing it by re-binning at
// the baseline resolution.
type Engine struct {
	store      Store
	resolution float64
}

// NewEngine creates a new anomaly engine
func NewEngine(store Store, resolution float64) *Engine {
	return &Engine{store: store, resolution: resolution}
}

type cellMonth struct {
	cell  aggregation.Cell
	month int
}

// Compute builds anomalies for every monthly aggregate of the target
// year that has a matching baseline. Cell-months without a baseline
// are skipped, counted and reported, never an error. Returns the
// number of anomalies written.
func (e *Engine) Compute(ctx context.Context, year, periodStart, periodEnd int, dataset string) (int, error) {
	if e.resolution <= 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", e.resolution)
	}
	if year < 1 {
		return 0, fmt.Errorf("year must be positive, got %d", year)
	}
	if periodStart > periodEnd {
		return 0, fmt.Errorf("baseline start year %d is after end year %d", periodStart, periodEnd)
	}

	period := database.PeriodLabel(periodStart, periodEnd)
	fmt.Printf("Computing anomalies for %d against baseline %s (%s)\n", year, period, dataset)

	monthlies, err := e.store.MonthlyAggregatesForYear(ctx, year, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load monthly aggregates: %w", err)
	}

	baselines, err := e.store.BaselinesForPeriod(ctx, periodStart, periodEnd, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load baselines: %w", err)
	}
	climatology := make(map[cellMonth]float64, len(baselines))
	for _, b := range baselines {
		key := cellMonth{cell: aggregation.Cell{LatBin: b.LatBin, LonBin: b.LonBin}, month: b.Month}
		climatology[key] = b.ClimatologySSTC
	}

	var anomalies []database.TemperatureAnomaly
	missing := 0
	for _, m := range monthlies {
		latBin, lonBin, err := grid.Bin(m.LatBin, m.LonBin, e.resolution)
		if err != nil {
			log.Printf("skipping monthly cell (%v, %v): %v", m.LatBin, m.LonBin, err)
			continue
		}
		key := cellMonth{cell: aggregation.Cell{LatBin: latBin, LonBin: lonBin}, month: m.Month}
		base, ok := climatology[key]
		if !ok {
			missing++
			continue
		}
		anomalies = append(anomalies, database.TemperatureAnomaly{
			Date:           time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC),
			LatBin:         m.LatBin,
			LonBin:         m.LonBin,
			AnomalyC:       m.AvgSSTC - base,
			BaselinePeriod: period,
			Dataset:        dataset,
		})
	}

	sort.Slice(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.LatBin != b.LatBin {
			return a.LatBin < b.LatBin
		}
		return a.LonBin < b.LonBin
	})

	written, err := e.store.UpsertTemperatureAnomalies(ctx, anomalies)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert anomalies: %w", err)
	}

	if missing > 0 {
		fmt.Printf("Anomaly computation completed: %d records for %d (%d cell-months had no baseline)\n",
			written, year, missing)
	} else {
		fmt.Printf("Anomaly computation completed: %d records for %d\n", written, year)
	}
	return written, nil
}
