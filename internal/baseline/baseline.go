package baseline

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/oceanobs/sst-server/internal/aggregation"
	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/grid"
)

// CoverageFraction is the minimum share of reference-period years a
// cell-month must have data for before a climatology is emitted.
const CoverageFraction = 0.7

// MinYears returns the coverage floor for a reference period of n
// years: ceil(CoverageFraction * n).
func MinYears(n int) int {
	return int(math.Ceil(CoverageFraction * float64(n)))
}

// Store is the storage surface the baseline builder needs.
type Store interface {
	MonthlyAggregatesForYears(ctx context.Context, startYear, endYear int, dataset string) ([]database.MonthlyAggregate, error)
	UpsertClimateBaselines(ctx context.Context, baselines []database.ClimateBaseline) (int, error)
}

// Calculator builds per-cell monthly climatologies over a reference
// period, re-binning monthly cells at its own resolution.
type Calculator struct {
	store      Store
	resolution float64
}

// NewCalculator creates a new baseline calculator
func NewCalculator(store Store, resolution float64) *Calculator {
	return &Calculator{store: store, resolution: resolution}
}

type cellMonth struct {
	cell  aggregation.Cell
	month int
}

type cellMonthValues struct {
	avgs  []float64
	years map[int]struct{}
}

// Build computes climatologies for every (cell, calendar month) with
// enough distinct years of data inside [startYear, endYear] and
// upserts them. Returns the number of records written.
func (c *Calculator) Build(ctx context.Context, startYear, endYear int, dataset string) (int, error) {
	if c.resolution <= 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", c.resolution)
	}
	if startYear < 1 || endYear < 1 {
		return 0, fmt.Errorf("years must be positive, got %d-%d", startYear, endYear)
	}
	if startYear > endYear {
		return 0, fmt.Errorf("start year %d is after end year %d", startYear, endYear)
	}

	nYears := endYear - startYear + 1
	minYears := MinYears(nYears)
	fmt.Printf("Building climate baselines for %d-%d (%s), coverage floor %d of %d years\n",
		startYear, endYear, dataset, minYears, nYears)

	monthlies, err := c.store.MonthlyAggregatesForYears(ctx, startYear, endYear, dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load monthly aggregates: %w", err)
	}

	groups := make(map[cellMonth]*cellMonthValues)
	for _, m := range monthlies {
		latBin, lonBin, err := grid.Bin(m.LatBin, m.LonBin, c.resolution)
		if err != nil {
			log.Printf("skipping monthly cell (%v, %v): %v", m.LatBin, m.LonBin, err)
			continue
		}
		key := cellMonth{cell: aggregation.Cell{LatBin: latBin, LonBin: lonBin}, month: m.Month}
		g := groups[key]
		if g == nil {
			g = &cellMonthValues{years: make(map[int]struct{})}
			groups[key] = g
		}
		g.avgs = append(g.avgs, m.AvgSSTC)
		g.years[m.Year] = struct{}{}
	}

	keys := make([]cellMonth, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.cell.LatBin != b.cell.LatBin {
			return a.cell.LatBin < b.cell.LatBin
		}
		if a.cell.LonBin != b.cell.LonBin {
			return a.cell.LonBin < b.cell.LonBin
		}
		return a.month < b.month
	})

	var baselines []database.ClimateBaseline
	belowFloor := 0
	for _, key := range keys {
		g := groups[key]
		if len(g.years) < minYears {
			belowFloor++
			continue
		}
		s, ok := aggregation.Summarize(g.avgs)
		if !ok {
			continue
		}
		baselines = append(baselines, database.ClimateBaseline{
			LatBin:          key.cell.LatBin,
			LonBin:          key.cell.LonBin,
			Month:           key.month,
			PeriodStart:     startYear,
			PeriodEnd:       endYear,
			ClimatologySSTC: s.Mean,
			StdSSTC:         s.Std,
			Dataset:         dataset,
		})
	}

	written, err := c.store.UpsertClimateBaselines(ctx, baselines)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert baselines: %w", err)
	}

	fmt.Printf("Baseline build completed: %d records for %d-%d (%d cell-months below coverage floor)\n",
		written, startYear, endYear, belowFloor)
	return written, nil
}
