package main

import (
	"github.com/spf13/cobra"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Vacuum and analyze the pipeline tables",
	RunE:  runMaintenance,
}

func init() {
	rootCmd.AddCommand(maintenanceCmd)
}

func runMaintenance(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	return p.maintenance(cmd.Context())
}
