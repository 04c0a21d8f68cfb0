package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oceanobs/sst-server/internal/heatwave"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every pipeline stage in order with default settings",
	Long: `Run daily, monthly, and yearly aggregation, baseline building, anomaly
computation, heatwave detection, and maintenance back to back. A stage
that fails outright is logged and the remaining stages still run.`,
	RunE: runAll,
}

func init() {
	rootCmd.AddCommand(allCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	year := time.Now().UTC().Year()
	dailyStart, dailyEnd := currentYearWindow()
	hwStart, hwEnd := previousYearWindow()

	stages := []struct {
		name string
		run  func() error
	}{
		{"aggregate-daily", func() error {
			return p.aggregateDaily(ctx, dailyStart, dailyEnd, "OISST", p.cfg.Pipeline.DailyResolution)
		}},
		{"aggregate-monthly", func() error {
			return p.aggregateMonthly(ctx, year, nil, "ERSST", p.cfg.Pipeline.MonthlyResolution)
		}},
		{"aggregate-yearly", func() error {
			return p.aggregateYearly(ctx, lastYears(10), "ERSST", p.cfg.Pipeline.YearlyResolution)
		}},
		{"baselines", func() error {
			return p.buildBaselines(ctx, defaultBaselinePeriods, []string{"ERSST", "OISST"}, p.cfg.Pipeline.BaselineResolution)
		}},
		{"anomalies", func() error {
			var years []int
			for y := year - 5; y <= year; y++ {
				years = append(years, y)
			}
			return p.computeAnomalies(ctx, years, "1991-2020", []string{"ERSST"})
		}},
		{"heatwaves", func() error {
			return p.detectHeatwaves(ctx, heatwave.ScanParams{
				Start:       hwStart,
				End:         hwEnd,
				Percentile:  90,
				MinDuration: 5,
				Dataset:     "OISST",
			})
		}},
		{"maintenance", func() error {
			return p.maintenance(ctx)
		}},
	}

	var failed []string
	for _, stage := range stages {
		fmt.Printf("--- Running %s ---\n", stage.name)
		if err := stage.run(); err != nil {
			log.Printf("Stage %s failed: %v", stage.name, err)
			failed = append(failed, stage.name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("stages failed: %s", strings.Join(failed, ", "))
	}
	fmt.Println("All processing stages completed")
	return nil
}
