package heatwave

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oceanobs/sst-server/internal/aggregation"
	"github.com/oceanobs/sst-server/internal/database"
)

// Store is the storage surface the detector needs.
type Store interface {
	DailyAggregatesRange(ctx context.Context, start, end time.Time, dataset string) ([]database.DailyAggregate, error)
	DeleteHeatwavesOverlapping(ctx context.Context, start, end time.Time, percentile float64, dataset string) (int, error)
	UpsertHeatwaveEvents(ctx context.Context, events []database.HeatwaveEvent) (int, error)
}

// Detector finds marine heatwaves in the daily aggregate series of
// every cell. The threshold for a cell is the percentile of its full
// daily-mean series inside the scanned window.
type Detector struct {
	store Store
}

// NewDetector creates a new heatwave detector
func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// ScanParams bounds one detection run.
type ScanParams struct {
	Start       time.Time
	End         time.Time
	Percentile  float64
	MinDuration int
	Dataset     string
	// Replace clears previously detected events overlapping the window
	// before writing, so events whose start date moved do not linger.
	Replace bool
}

// Scan detects heatwave events for every cell with daily data in the
// window and upserts them. Returns the number of events written.
func (d *Detector) Scan(ctx context.Context, p ScanParams) (int, error) {
	if p.Percentile <= 0 || p.Percentile >= 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100 exclusive, got %v", p.Percentile)
	}
	if p.MinDuration < 1 {
		return 0, fmt.Errorf("min duration must be at least 1 day, got %d", p.MinDuration)
	}
	if p.End.Before(p.Start) {
		return 0, fmt.Errorf("start date %s is after end date %s",
			p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
	}

	fmt.Printf("Scanning heatwaves %s to %s (%s), percentile %g, min duration %d days\n",
		p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), p.Dataset, p.Percentile, p.MinDuration)

	dailies, err := d.store.DailyAggregatesRange(ctx, p.Start, p.End, p.Dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily aggregates: %w", err)
	}

	series := make(map[aggregation.Cell][]Day)
	for _, a := range dailies {
		cell := aggregation.Cell{LatBin: a.LatBin, LonBin: a.LonBin}
		series[cell] = append(series[cell], Day{Date: a.Date, Value: a.AvgSSTC})
	}

	cells := make([]aggregation.Cell, 0, len(series))
	for c := range series {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].LatBin != cells[j].LatBin {
			return cells[i].LatBin < cells[j].LatBin
		}
		return cells[i].LonBin < cells[j].LonBin
	})

	var events []database.HeatwaveEvent
	for _, cell := range cells {
		days := series[cell]
		sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

		values := make([]float64, len(days))
		for i, day := range days {
			values[i] = day.Value
		}
		threshold, err := Percentile(values, p.Percentile)
		if err != nil {
			return 0, fmt.Errorf("failed to compute threshold for cell (%v, %v): %w",
				cell.LatBin, cell.LonBin, err)
		}

		for _, run := range DetectRuns(days, threshold, p.MinDuration) {
			events = append(events, database.HeatwaveEvent{
				StartDate:            run.Start,
				EndDate:              run.End,
				DurationDays:         run.Duration,
				LatBin:               cell.LatBin,
				LonBin:               cell.LonBin,
				MaxIntensityC:        run.Max,
				MeanIntensityC:       run.Mean,
				CumulativeIntensityC: run.Cumulative,
				ThresholdPercentile:  p.Percentile,
				Dataset:              p.Dataset,
			})
		}
	}

	if p.Replace {
		removed, err := d.store.DeleteHeatwavesOverlapping(ctx, p.Start, p.End, p.Percentile, p.Dataset)
		if err != nil {
			return 0, fmt.Errorf("failed to clear previous events: %w", err)
		}
		if removed > 0 {
			fmt.Printf("Cleared %d previously detected events\n", removed)
		}
	}

	written, err := d.store.UpsertHeatwaveEvents(ctx, events)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert heatwave events: %w", err)
	}

	fmt.Printf("Heatwave scan completed: %d events across %d cells\n", written, len(cells))
	return written, nil
}
