package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/deltaeng/delta/internal/service"
)

// debouncer coalesces bursts of filesystem events into a single
// trigger after quiet, mirroring the teacher's daemon_watcher.go /
// daemon_event_loop.go Debouncer (Trigger resets the timer; Cancel
// stops it on shutdown).
type debouncer struct {
	quiet time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

func newDebouncer(quiet time.Duration, fn func()) *debouncer {
	return &debouncer{quiet: quiet, fn: fn}
}

func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fn)
}

func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the migrations directory and commit newly-landed artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, closeAll, err := buildRegistry(ctx, "")
		if err != nil {
			return err
		}
		defer closeAll()

		svc := service.New(reg, logger)
		req := buildRequest(cmd, "watch")
		path := req.Path
		if path == "" {
			path = "."
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("delta: starting filesystem watcher: %w", err)
		}
		defer w.Close()

		if err := w.Add(path); err != nil {
			return fmt.Errorf("delta: watching %s: %w", path, err)
		}

		runCommit := func() {
			result := svc.Commit(ctx, req)
			if !result.Success {
				logger.Error(req.Flow, "watch", "commit failed", "message", result.Message)
				return
			}
			logger.Info(req.Flow, "watch", "commit succeeded", "data", result.Data)
		}
		deb := newDebouncer(500*time.Millisecond, runCommit)
		defer deb.Cancel()

		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", path)
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					deb.Trigger()
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return nil
				}
				logger.Warn(req.Flow, "watch", "fsnotify error", "error", werr.Error())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
