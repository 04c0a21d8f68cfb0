package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sst-processor",
	Short: "SST temporal aggregation pipeline",
	Long: `sst-processor runs the batch stages that turn raw gridded sea surface
temperature observations into daily, monthly, and yearly rollups,
climatology baselines, temperature anomalies, and marine heatwave events.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// resolveWindow turns optional --start-date/--end-date strings into a
// concrete window, falling back when neither is given.
func resolveWindow(startStr, endStr string, fallback func() (time.Time, time.Time)) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		start, end := fallback()
		return start, end, nil
	}
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both --start-date and --end-date are required when either is given")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start-date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end-date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start-date %s is after --end-date %s", startStr, endStr)
	}
	return start, end, nil
}

// currentYearWindow spans January 1 of the current year through today.
func currentYearWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), now.Truncate(24 * time.Hour)
}

// previousYearWindow spans January 1 of the previous year through today.
func previousYearWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC), now.Truncate(24 * time.Hour)
}
