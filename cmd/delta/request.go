package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/config"
)

// buildRequest merges config.Defaults with any explicitly-set flags on
// cmd into a change.Request, following the CLI surface in spec §6.
func buildRequest(cmd *cobra.Command, flow string) change.Request {
	defaults := config.Load()
	flags := cmd.Flags()

	req := change.Request{
		Flow:      flow,
		Path:      defaults.Path,
		Extension: defaults.Extension,
		Runner:    defaults.Runner,
		Tracker:   defaults.Tracker,
		Prefix:    defaults.Prefix,
		Stat:      defaults.Stat,
		Params:    map[string]any{},
	}

	if v, _ := flags.GetString("path"); v != "" {
		req.Path = v
	}
	if v, _ := flags.GetString("runner"); v != "" {
		req.Runner = v
	}
	if v, _ := flags.GetString("tracker"); v != "" {
		req.Tracker = v
	}
	if v, _ := flags.GetString("extension"); v != "" {
		req.Extension = v
	}
	if v, _ := flags.GetString("prefix"); v != "" {
		req.Prefix = v
	}
	if v, _ := flags.GetBool("stat"); v {
		req.Stat = true
	}

	var filter change.Filter
	if v, _ := flags.GetString("filter-id"); v != "" {
		filter.ID = v
	}
	if v, _ := flags.GetString("tag"); v != "" {
		filter.Tag = v
	} else if defaults.Tag != "" {
		filter.Tag = defaults.Tag
	}
	if v, _ := flags.GetString("filter-name"); v != "" {
		filter.Name = v
	}
	if v, _ := flags.GetString("filter-file"); v != "" {
		filter.File = v
	}
	if v, _ := flags.GetString("filter-date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Created = t
		}
	}
	if v, _ := flags.GetString("filter-type"); v != "" {
		filter.Type = change.FilterType(v)
	}
	if v, _ := flags.GetInt("count"); v > 0 {
		filter.Count = v
	}
	req.Filter = filter

	return req
}
