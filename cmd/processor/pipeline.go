package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oceanobs/sst-server/internal/aggregation"
	"github.com/oceanobs/sst-server/internal/anomaly"
	"github.com/oceanobs/sst-server/internal/baseline"
	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/heatwave"
	"github.com/oceanobs/sst-server/internal/jobs"
	"github.com/oceanobs/sst-server/internal/observability"
	"github.com/oceanobs/sst-server/pkg/config"
)

// pipeline bundles the resources every processing stage needs.
type pipeline struct {
	cfg      *config.Config
	db       *database.DB
	recorder *jobs.Recorder
	metrics  *observability.Metrics
}

func openPipeline() (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations("migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &pipeline{
		cfg:      cfg,
		db:       db,
		recorder: jobs.NewRecorder(db, nil),
		metrics:  observability.NewMetrics(),
	}, nil
}

func (p *pipeline) Close() {
	p.db.Close()
}

// aggregateDaily rolls grid observations up to daily cell statistics for
// every date in the window that has observations. A date that fails is
// logged and skipped so one bad day cannot block the rest.
func (p *pipeline) aggregateDaily(ctx context.Context, start, end time.Time, dataset string, resolution float64) error {
	name := fmt.Sprintf("AGGREGATE_GRID_DAILY_%s", dataset)
	return p.recorder.Run(ctx, name, func(ctx context.Context) (string, error) {
		dates, err := p.db.ObservationDatesInRange(ctx, start, end, dataset)
		if err != nil {
			return "", err
		}

		agg := aggregation.NewDailyAggregator(p.db, resolution)
		total, failed := 0, 0
		for _, date := range dates {
			n, err := agg.Aggregate(ctx, date, dataset)
			if err != nil {
				log.Printf("Failed to aggregate %s: %v", date.Format("2006-01-02"), err)
				failed++
				continue
			}
			total += n
		}
		p.metrics.RecordsUpserted.WithLabelValues("daily").Add(float64(total))

		note := fmt.Sprintf("Aggregated %d daily records for %s across %d dates", total, dataset, len(dates))
		fmt.Println(note)
		if failed == len(dates) && failed > 0 {
			return "", fmt.Errorf("all %d dates failed", failed)
		}
		if failed > 0 {
			return "", &jobs.PartialError{Note: fmt.Sprintf("%s (%d of %d dates failed)", note, failed, len(dates))}
		}
		return note, nil
	})
}

// aggregateMonthly rolls daily statistics up to monthly for the given
// months of one year.
func (p *pipeline) aggregateMonthly(ctx context.Context, year int, months []int, dataset string, resolution float64) error {
	name := fmt.Sprintf("AGGREGATE_DAILY_MONTHLY_%s", dataset)
	return p.recorder.Run(ctx, name, func(ctx context.Context) (string, error) {
		if len(months) == 0 {
			for m := 1; m <= 12; m++ {
				months = append(months, m)
			}
		}

		agg := aggregation.NewMonthlyAggregator(p.db, resolution)
		total, failed := 0, 0
		for _, month := range months {
			n, err := agg.Aggregate(ctx, year, month, dataset)
			if err != nil {
				log.Printf("Failed to aggregate %d-%02d: %v", year, month, err)
				failed++
				continue
			}
			total += n
		}
		p.metrics.RecordsUpserted.WithLabelValues("monthly").Add(float64(total))

		note := fmt.Sprintf("Aggregated %d monthly records for %s %d", total, dataset, year)
		fmt.Println(note)
		if failed == len(months) && failed > 0 {
			return "", fmt.Errorf("all %d months failed", failed)
		}
		if failed > 0 {
			return "", &jobs.PartialError{Note: fmt.Sprintf("%s (%d of %d months failed)", note, failed, len(months))}
		}
		return note, nil
	})
}

// aggregateYearly rolls monthly statistics up to yearly for the given years.
func (p *pipeline) aggregateYearly(ctx context.Context, years []int, dataset string, resolution float64) error {
	name := fmt.Sprintf("AGGREGATE_MONTHLY_YEARLY_%s", dataset)
	return p.recorder.Run(ctx, name, func(ctx context.Context) (string, error) {
		agg := aggregation.NewYearlyAggregator(p.db, resolution)
		total, failed := 0, 0
		for _, year := range years {
			n, err := agg.Aggregate(ctx, year, dataset)
			if err != nil {
				log.Printf("Failed to aggregate year %d: %v", year, err)
				failed++
				continue
			}
			total += n
		}
		p.metrics.RecordsUpserted.WithLabelValues("yearly").Add(float64(total))

		note := fmt.Sprintf("Aggregated %d yearly records for %s", total, dataset)
		fmt.Println(note)
		if failed == len(years) && failed > 0 {
			return "", fmt.Errorf("all %d years failed", failed)
		}
		if failed > 0 {
			return "", &jobs.PartialError{Note: fmt.Sprintf("%s (%d of %d years failed)", note, failed, len(years))}
		}
		return note, nil
	})
}

// buildBaselines computes climatology baselines for every period and
// dataset combination.
func (p *pipeline) buildBaselines(ctx context.Context, periods, datasets []string, resolution float64) error {
	return p.recorder.Run(ctx, "CALCULATE_BASELINES", func(ctx context.Context) (string, error) {
		calc := baseline.NewCalculator(p.db, resolution)
		total, failed, combos := 0, 0, 0
		for _, period := range periods {
			startYear, endYear, err := database.ParsePeriodLabel(period)
			if err != nil {
				return "", err
			}
			for _, dataset := range datasets {
				combos++
				n, err := calc.Build(ctx, startYear, endYear, dataset)
				if err != nil {
					log.Printf("Failed to build baseline %s %s: %v", dataset, period, err)
					failed++
					continue
				}
				total += n
			}
		}
		p.metrics.RecordsUpserted.WithLabelValues("baseline").Add(float64(total))

		note := fmt.Sprintf("Calculated %d climate baseline records", total)
		fmt.Println(note)
		if failed == combos && failed > 0 {
			return "", fmt.Errorf("all %d baseline combinations failed", failed)
		}
		if failed > 0 {
			return "", &jobs.PartialError{Note: fmt.Sprintf("%s (%d of %d combinations failed)", note, failed, combos)}
		}
		return note, nil
	})
}

// computeAnomalies derives monthly anomalies against one baseline period
// for every year and dataset combination.
func (p *pipeline) computeAnomalies(ctx context.Context, years []int, period string, datasets []string) error {
	name := fmt.Sprintf("CALCULATE_ANOMALIES_%s", period)
	return p.recorder.Run(ctx, name, func(ctx context.Context) (string, error) {
		periodStart, periodEnd, err := database.ParsePeriodLabel(period)
		if err != nil {
			return "", err
		}

		engine := anomaly.NewEngine(p.db, p.cfg.Pipeline.BaselineResolution)
		total, failed, combos := 0, 0, 0
		for _, year := range years {
			for _, dataset := range datasets {
				combos++
				n, err := engine.Compute(ctx, year, periodStart, periodEnd, dataset)
				if err != nil {
					log.Printf("Failed to compute anomalies %s %d: %v", dataset, year, err)
					failed++
					continue
				}
				total += n
			}
		}
		p.metrics.RecordsUpserted.WithLabelValues("anomaly").Add(float64(total))

		note := fmt.Sprintf("Calculated %d temperature anomaly records", total)
		fmt.Println(note)
		if failed == combos && failed > 0 {
			return "", fmt.Errorf("all %d anomaly combinations failed", failed)
		}
		if failed > 0 {
			return "", &jobs.PartialError{Note: fmt.Sprintf("%s (%d of %d combinations failed)", note, failed, combos)}
		}
		return note, nil
	})
}

// detectHeatwaves scans daily statistics for marine heatwave events.
func (p *pipeline) detectHeatwaves(ctx context.Context, params heatwave.ScanParams) error {
	name := fmt.Sprintf("DETECT_HEATWAVES_%s", params.Dataset)
	return p.recorder.Run(ctx, name, func(ctx context.Context) (string, error) {
		detector := heatwave.NewDetector(p.db)
		n, err := detector.Scan(ctx, params)
		if err != nil {
			return "", err
		}
		p.metrics.RecordsUpserted.WithLabelValues("heatwave").Add(float64(n))

		note := fmt.Sprintf("Detected %d heatwave events for %s", n, params.Dataset)
		fmt.Println(note)
		return note, nil
	})
}

// maintenance vacuums and analyzes the pipeline tables.
func (p *pipeline) maintenance(ctx context.Context) error {
	return p.recorder.Run(ctx, "MAINTENANCE", func(ctx context.Context) (string, error) {
		if err := p.db.Maintenance(ctx); err != nil {
			return "", err
		}
		note := "Database maintenance completed"
		fmt.Println(note)
		return note, nil
	})
}
