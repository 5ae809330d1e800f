package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/change"
)

// printResult renders a Result to stdout as JSON and maps
// Result.Success to the process exit code (spec §6).
func printResult(cmd *cobra.Command, result change.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}
