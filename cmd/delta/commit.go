package main

import (
	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/service"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Apply all available migrations in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, closeAll, err := buildRegistry(ctx, "")
		if err != nil {
			return err
		}
		defer closeAll()

		svc := service.New(reg, logger)
		req := buildRequest(cmd, "commit")
		result := svc.Commit(ctx, req)
		return printResult(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}
