package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/config"
	"github.com/deltaeng/delta/internal/runner"
)

var createKind string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Generate a paired commit/rollback migration artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := config.Load()
		dir := defaults.Path
		if v, _ := cmd.Flags().GetString("path"); v != "" {
			dir = v
		}

		kind := runner.Kind(createKind)
		commitPath, rollbackPath, err := runner.Create(dir, args[0], kind, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s\ncreated %s\n", commitPath, rollbackPath)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createKind, "kind", string(runner.KindModule), "artifact kind: module|script|shell")
	rootCmd.AddCommand(createCmd)
}
