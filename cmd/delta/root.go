package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/config"
	"github.com/deltaeng/delta/internal/logging"
)

var logger logging.Logger

var rootCmd = &cobra.Command{
	Use:   "delta",
	Short: "delta is a change-management engine for document and relational databases",
	Long: `delta tracks and executes migrations against a target database.

It pairs a Tracker (the durable applied log and filesystem set algebra)
with a Runner (per-change execution) through a single orchestrating
Service, supporting document-store (MongoDB), relational (SQLite), and
shell-exec backends.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("delta: loading configuration: %w", err)
		}
		if logPath, _ := rootCmd.PersistentFlags().GetString("log-file"); logPath != "" {
			logger = logging.NewRotating(logPath, 10, 5, 30)
		} else {
			logger = logging.New(os.Stderr)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("path", "", "migrations directory (default: current directory)")
	rootCmd.PersistentFlags().String("runner", "", "runner driver name (default: mdb)")
	rootCmd.PersistentFlags().String("tracker", "", "tracker driver name (default: mdb)")
	rootCmd.PersistentFlags().String("extension", "", "migration file extension filter (default: js)")
	rootCmd.PersistentFlags().Bool("stat", false, "force a filesystem stat even when the filename carries a timestamp")
	rootCmd.PersistentFlags().String("prefix", "", "key prefix recorded on the request (runners resolve modules with DELTA_KEY or delta:migration:)")
	rootCmd.PersistentFlags().String("tag", "", "tag recorded on the request filter (not applied by the trackers)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this rotated file, in addition to stderr")

	rootCmd.PersistentFlags().String("filter-id", "", "change ID recorded on the request filter (not applied by the trackers)")
	rootCmd.PersistentFlags().String("filter-name", "", "filter by name regexp")
	rootCmd.PersistentFlags().String("filter-file", "", "file regexp recorded on the request filter (not applied by the trackers)")
	rootCmd.PersistentFlags().String("filter-date", "", "RFC3339 date recorded on the request filter (not applied by the trackers)")
	rootCmd.PersistentFlags().String("filter-type", "", "filter type: include|exclude|start|stop")
	rootCmd.PersistentFlags().Int("count", 0, "cap the number of available changes per run")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
