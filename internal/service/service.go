// Package service implements the single top-level orchestrator (spec
// §4.G): resolve (runner, tracker) from the registry, iterate changes
// sequentially, persist the valid prefix even on partial failure.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/registry"
	"github.com/deltaeng/delta/internal/tracker"
)

const (
	defaultRunnerPrefix  = "delta:runner"
	defaultTrackerPrefix = "delta:tracker"
	defaultDriverName    = "mdb"
)

// Runner is the subset of runner.Base's public surface the Service
// depends on, kept narrow so fakes are trivial to write in tests.
type Runner interface {
	Commit(ctx context.Context, c change.Change, req change.Request) (change.Result, error)
	Rollback(ctx context.Context, c change.Change, req change.Request) (change.Result, error)
}

// Service is the MigrationService orchestrator.
type Service struct {
	Registry registry.Registry
	Logger   logging.Logger
}

// New builds a Service.
func New(reg registry.Registry, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard
	}
	return &Service{Registry: reg, Logger: logger}
}

// getDrivers resolves (runner, tracker) concurrently and joins (spec
// §5: "the two driver lookups inside getDrivers may be launched
// concurrently and joined").
func (s *Service) getDrivers(ctx context.Context, req change.Request) (Runner, tracker.Tracker, error) {
	runnerName := strings.ToLower(orDefault(req.Runner, defaultDriverName))
	trackerName := strings.ToLower(orDefault(req.Tracker, defaultDriverName))

	runnerKey := fmt.Sprintf("%s:%s", defaultRunnerPrefix, runnerName)
	trackerKey := fmt.Sprintf("%s:%s", defaultTrackerPrefix, trackerName)

	var runnerDriver, trackerDriver registry.Driver
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.Registry.Get(gctx, runnerKey)
		if err != nil {
			return fmt.Errorf("service: resolving runner %s: %w", runnerKey, err)
		}
		runnerDriver = d
		return nil
	})
	g.Go(func() error {
		d, err := s.Registry.Get(gctx, trackerKey)
		if err != nil {
			return fmt.Errorf("service: resolving tracker %s: %w", trackerKey, err)
		}
		trackerDriver = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	r, ok := runnerDriver.(Runner)
	if !ok {
		return nil, nil, fmt.Errorf("service: driver %s does not implement Runner", runnerKey)
	}
	t, ok := trackerDriver.(tracker.Tracker)
	if !ok {
		return nil, nil, fmt.Errorf("service: driver %s does not implement Tracker", trackerKey)
	}
	return r, t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Commit resolves drivers, fetches available changes, and runs them
// in order, persisting the valid prefix even on partial failure (spec
// §4.G step 4).
func (s *Service) Commit(ctx context.Context, req change.Request) change.Result {
	runner, trk, err := s.getDrivers(ctx, req)
	if err != nil {
		return change.Fail(err)
	}

	available, err := trk.Available(ctx, req)
	if err != nil {
		return change.Fail(err)
	}

	var valid []change.Change
	for _, c := range available {
		result, err := runner.Commit(ctx, c, req)
		if err != nil || !result.Success {
			msg := errOrMessage(err, result)
			s.Logger.Error(req.Flow, "service.commit", "migration failed", "name", c.Name, "error", msg)
			break
		}
		applied := c
		if mc, ok := result.Data.(change.Change); ok {
			applied = mc
		}
		applied.Applied = time.Now().UTC()
		valid = append(valid, applied)
	}

	if _, err := trk.Add(ctx, valid, req); err != nil {
		return change.Fail(fmt.Errorf("service: persisting applied prefix: %w", err))
	}

	return change.Ok(valid)
}

// Rollback enumerates the applied list in the order Tracker.List
// produces it (Created ascending — the same order changes were
// committed in), runs the rollback hook per change, and removes the
// successfully-rolled-back prefix (spec §4.G, symmetric to Commit).
// Resolved Open Question (spec §9): the source is silent on rollback
// iteration order; this matches the worked example E6, not the
// most-recent-first alternative also suggested in §9 — see DESIGN.md.
func (s *Service) Rollback(ctx context.Context, req change.Request) change.Result {
	runner, trk, err := s.getDrivers(ctx, req)
	if err != nil {
		return change.Fail(err)
	}

	applied, err := trk.List(ctx, req)
	if err != nil {
		return change.Fail(err)
	}

	var valid []change.Change
	for _, c := range applied {
		result, err := runner.Rollback(ctx, c, req)
		if err != nil || !result.Success {
			msg := errOrMessage(err, result)
			s.Logger.Error(req.Flow, "service.rollback", "rollback failed", "name", c.Name, "error", msg)
			break
		}
		valid = append(valid, c)
	}

	if _, err := trk.Delete(ctx, valid, req); err != nil {
		return change.Fail(fmt.Errorf("service: removing rolled-back prefix: %w", err))
	}

	return change.Ok(valid)
}

// Status delegates to the tracker's Status projection.
func (s *Service) Status(ctx context.Context, req change.Request) change.Result {
	_, trk, err := s.getDrivers(ctx, req)
	if err != nil {
		return change.Fail(err)
	}
	result, err := trk.Status(ctx, req)
	if err != nil {
		return change.Fail(err)
	}
	return result
}

// Compare is an unimplemented boundary: live schema diffing is out of
// scope (spec §1 Non-goals).
func (s *Service) Compare(context.Context, change.Request) change.Result {
	return change.Fail(change.ErrNotImplemented)
}

// Check delegates to the tracker's Info composition, reporting the
// available/applied/missing/ignored sets without side effects.
func (s *Service) Check(ctx context.Context, req change.Request) change.Result {
	_, trk, err := s.getDrivers(ctx, req)
	if err != nil {
		return change.Fail(err)
	}
	info, err := trk.Info(ctx, req)
	if err != nil {
		return change.Fail(err)
	}
	return change.Ok(info)
}

// Configure is preserved as an unimplemented boundary for future
// external configuration sources (spec §4.G).
func (s *Service) Configure(context.Context, change.Request) change.Result {
	return change.Fail(change.ErrNotImplemented)
}

func errOrMessage(err error, result change.Result) string {
	if err != nil {
		return err.Error()
	}
	return result.Message
}
