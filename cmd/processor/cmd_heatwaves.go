package main

import (
	"github.com/spf13/cobra"

	"github.com/oceanobs/sst-server/internal/heatwave"
)

var (
	heatwaveStartDate   string
	heatwaveEndDate     string
	heatwaveDataset     string
	heatwavePercentile  float64
	heatwaveMinDuration int
	heatwaveReplace     bool
)

var heatwavesCmd = &cobra.Command{
	Use:   "heatwaves",
	Short: "Detect marine heatwave events from daily statistics",
	Long: `Scan daily per-cell statistics for runs of days above the cell's
percentile threshold. Defaults to scanning from January 1 of the
previous year through today.`,
	RunE: runHeatwaves,
}

func init() {
	heatwavesCmd.Flags().StringVar(&heatwaveStartDate, "start-date", "", "Start date (YYYY-MM-DD)")
	heatwavesCmd.Flags().StringVar(&heatwaveEndDate, "end-date", "", "End date (YYYY-MM-DD)")
	heatwavesCmd.Flags().StringVar(&heatwaveDataset, "dataset", "OISST", "Dataset to process")
	heatwavesCmd.Flags().Float64Var(&heatwavePercentile, "percentile", 90, "Temperature percentile threshold")
	heatwavesCmd.Flags().IntVar(&heatwaveMinDuration, "min-duration", 5, "Minimum event duration in days")
	heatwavesCmd.Flags().BoolVar(&heatwaveReplace, "replace", false, "Clear previously detected events in the window first")

	rootCmd.AddCommand(heatwavesCmd)
}

func runHeatwaves(cmd *cobra.Command, args []string) error {
	start, end, err := resolveWindow(heatwaveStartDate, heatwaveEndDate, previousYearWindow)
	if err != nil {
		return err
	}

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	return p.detectHeatwaves(cmd.Context(), heatwave.ScanParams{
		Start:       start,
		End:         end,
		Percentile:  heatwavePercentile,
		MinDuration: heatwaveMinDuration,
		Dataset:     heatwaveDataset,
		Replace:     heatwaveReplace,
	})
}
