package main

import (
	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/service"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the currently applied migrations in applied order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, closeAll, err := buildRegistry(ctx, "")
		if err != nil {
			return err
		}
		defer closeAll()

		svc := service.New(reg, logger)
		req := buildRequest(cmd, "rollback")
		result := svc.Rollback(ctx, req)
		return printResult(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
