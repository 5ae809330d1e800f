package main

import (
	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied, available, ignored, and missing migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, closeAll, err := buildRegistry(ctx, "")
		if err != nil {
			return err
		}
		defer closeAll()

		svc := service.New(reg, logger)
		req := buildRequest(cmd, "status")
		result := svc.Status(ctx, req)
		return printResult(cmd, result)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the target schema against migration history (unimplemented boundary)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, closeAll, err := buildRegistry(ctx, "")
		if err != nil {
			return err
		}
		defer closeAll()

		svc := service.New(reg, logger)
		req := buildRequest(cmd, "compare")
		result := svc.Compare(ctx, req)
		return printResult(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(compareCmd)
}
