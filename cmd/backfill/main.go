package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	afterStr   string
	beforeStr  string
	dryRun     bool
	assumeYes  bool
	reportPath string
)

var rootCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Regenerate service usage events from the audit trail",
	Long: `backfill rebuilds missing or broken service_usage_events rows by replaying
service-instance audit events for a time window, enriching them from the
platform catalog, and inserting reconstructed usage events in a single
transaction.`,
	SilenceUsage: true,
	RunE:         runBackfill,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to run config TOML (window and filters)")
	rootCmd.Flags().StringVar(&afterStr, "after", "", "window start, exclusive (YYYY-MM-DD or RFC 3339)")
	rootCmd.Flags().StringVar(&beforeStr, "before", "", "window end, inclusive (YYYY-MM-DD or RFC 3339)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "reconcile and report but roll back all writes")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "write the faulty-record report to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
