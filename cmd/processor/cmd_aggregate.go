package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	dailyStartDate  string
	dailyEndDate    string
	dailyDataset    string
	dailyResolution float64

	monthlyYear       int
	monthlyMonths     []int
	monthlyDataset    string
	monthlyResolution float64

	yearlyYear       int
	yearlyDataset    string
	yearlyResolution float64
)

var aggregateDailyCmd = &cobra.Command{
	Use:   "aggregate-daily",
	Short: "Aggregate grid observations into daily cell statistics",
	Long: `Bucket raw grid observations into daily per-cell statistics for every
date in the window that has observations. Defaults to the current year.`,
	RunE: runAggregateDaily,
}

var aggregateMonthlyCmd = &cobra.Command{
	Use:   "aggregate-monthly",
	Short: "Aggregate daily statistics into monthly rollups",
	RunE:  runAggregateMonthly,
}

var aggregateYearlyCmd = &cobra.Command{
	Use:   "aggregate-yearly",
	Short: "Aggregate monthly statistics into yearly rollups",
	RunE:  runAggregateYearly,
}

func init() {
	aggregateDailyCmd.Flags().StringVar(&dailyStartDate, "start-date", "", "Start date (YYYY-MM-DD)")
	aggregateDailyCmd.Flags().StringVar(&dailyEndDate, "end-date", "", "End date (YYYY-MM-DD)")
	aggregateDailyCmd.Flags().StringVar(&dailyDataset, "dataset", "OISST", "Dataset to process")
	aggregateDailyCmd.Flags().Float64Var(&dailyResolution, "resolution", 0, "Spatial binning in degrees (0 = configured default)")

	aggregateMonthlyCmd.Flags().IntVar(&monthlyYear, "year", 0, "Target year (0 = current year)")
	aggregateMonthlyCmd.Flags().IntSliceVar(&monthlyMonths, "months", nil, "Months to process, e.g. 1,2,3 (default: all)")
	aggregateMonthlyCmd.Flags().StringVar(&monthlyDataset, "dataset", "ERSST", "Dataset to process")
	aggregateMonthlyCmd.Flags().Float64Var(&monthlyResolution, "resolution", 0, "Spatial binning in degrees (0 = configured default)")

	aggregateYearlyCmd.Flags().IntVar(&yearlyYear, "year", 0, "Target year (0 = last ten years)")
	aggregateYearlyCmd.Flags().StringVar(&yearlyDataset, "dataset", "ERSST", "Dataset to process")
	aggregateYearlyCmd.Flags().Float64Var(&yearlyResolution, "resolution", 0, "Spatial binning in degrees (0 = configured default)")

	rootCmd.AddCommand(aggregateDailyCmd)
	rootCmd.AddCommand(aggregateMonthlyCmd)
	rootCmd.AddCommand(aggregateYearlyCmd)
}

func runAggregateDaily(cmd *cobra.Command, args []string) error {
	start, end, err := resolveWindow(dailyStartDate, dailyEndDate, currentYearWindow)
	if err != nil {
		return err
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	resolution := dailyResolution
	if resolution == 0 {
		resolution = p.cfg.Pipeline.DailyResolution
	}
	return p.aggregateDaily(cmd.Context(), start, end, dailyDataset, resolution)
}

func runAggregateMonthly(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	year := monthlyYear
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	resolution := monthlyResolution
	if resolution == 0 {
		resolution = p.cfg.Pipeline.MonthlyResolution
	}
	return p.aggregateMonthly(cmd.Context(), year, monthlyMonths, monthlyDataset, resolution)
}

func runAggregateYearly(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	years := []int{yearlyYear}
	if yearlyYear == 0 {
		years = lastYears(10)
	}
	resolution := yearlyResolution
	if resolution == 0 {
		resolution = p.cfg.Pipeline.YearlyResolution
	}
	return p.aggregateYearly(cmd.Context(), years, yearlyDataset, resolution)
}

// lastYears lists the n years before the current one, oldest first.
func lastYears(n int) []int {
	current := time.Now().UTC().Year()
	years := make([]int, 0, n)
	for y := current - n; y < current; y++ {
		years = append(years, y)
	}
	return years
}
