// Package runner implements the shared per-change execution skeleton
// (spec §4.E): type gate, module resolution through the driver
// registry, hook invocation, and description/tag merge-back. Concrete
// backends implement Executor (the backend-specific tool object and
// hook invocation) and are wrapped in a Base, mirroring the composition
// pattern in internal/tracker.
package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/registry"
)

const defaultKeyPrefix = "delta:migration:"

// Module is what the driver registry resolves a migration artifact to:
// the user-authored commit/rollback hooks plus optional metadata that
// gets merged back into the Change on success.
type Module struct {
	Commit      Hook
	Rollback    Hook
	Description string
	Tags        []string
}

// Hook is a user-authored migration function. Tool is the
// backend-provided object passed at invocation (spec §4.F): a Mongo
// session/collection bundle, a shell file path, etc.
type Hook func(ctx context.Context, tool any) (change.Result, error)

// Executor is the backend-specific half of a runner: building the tool
// object and invoking the named hook against it. Concrete runners
// (mongorunner, shellrunner, mongoshrunner) implement this; Base
// supplies the shared skeleton around it.
type Executor interface {
	// Configure performs any lazy, idempotent backend setup (opening a
	// session factory, resolving an interpreter program, etc).
	Configure(ctx context.Context, req change.Request) error

	// Invoke runs the named hook ("commit" or "rollback") for c, wiring
	// up whatever backend-specific tool object that hook expects.
	Invoke(ctx context.Context, hookName string, mod Module, c change.Change, req change.Request) (change.Result, error)
}

// Base implements the commit/rollback skeleton shared by every backend
// (spec §4.E): type gate, registry resolution, hook dispatch, and
// description/tag merge-back. Concrete runners are Executors held by
// a Base.
type Base struct {
	Executor Executor
	Registry registry.Registry
	Logger   logging.Logger

	keyPrefix  string
	configured bool
}

// NewBase wires an Executor and Registry into a Base runner helper.
// keyPrefix, when empty, falls back to the DELTA_KEY environment
// variable and then to "delta:migration:" (spec §4.E), read once here
// rather than per-call, per the "ambient config at boundaries" note in
// spec §9.
func NewBase(exec Executor, reg registry.Registry, logger logging.Logger, keyPrefix string) *Base {
	if logger == nil {
		logger = logging.Discard
	}
	if keyPrefix == "" {
		keyPrefix = os.Getenv("DELTA_KEY")
	}
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Base{Executor: exec, Registry: reg, Logger: logger, keyPrefix: keyPrefix}
}

func (b *Base) ensureConfigured(ctx context.Context, req change.Request) error {
	if b.configured {
		return nil
	}
	if err := b.Executor.Configure(ctx, req); err != nil {
		return err
	}
	b.configured = true
	return nil
}

// Commit runs the commit hook for c.
func (b *Base) Commit(ctx context.Context, c change.Change, req change.Request) (change.Result, error) {
	return b.run(ctx, "commit", c, req)
}

// Rollback runs the rollback hook for c.
func (b *Base) Rollback(ctx context.Context, c change.Change, req change.Request) (change.Result, error) {
	return b.run(ctx, "rollback", c, req)
}

// run implements the shared skeleton steps 1-5 from spec §4.E.
func (b *Base) run(ctx context.Context, hookName string, c change.Change, req change.Request) (change.Result, error) {
	if t := c.Type.Effective(); t != change.TypeModule {
		return change.FailMessage(change.ErrTypeGate.Error()), nil
	}

	if err := b.ensureConfigured(ctx, req); err != nil {
		return change.Result{}, err
	}

	key := b.keyPrefix + c.Name
	driver, err := b.Registry.Get(ctx, key)
	if err != nil {
		return change.Result{}, fmt.Errorf("runner: resolving %s: %w", key, err)
	}
	mod, ok := driver.(Module)
	if !ok {
		return change.Result{}, fmt.Errorf("runner: driver for %s is not a runner.Module", key)
	}

	result, err := b.Executor.Invoke(ctx, hookName, mod, c, req)
	if err != nil {
		b.Logger.Error(req.Flow, "runner.run", "hook failed", "name", c.Name, "hook", hookName, "error", err.Error())
		return change.FailMessage(err.Error()), nil
	}
	if !result.Success {
		b.Logger.Error(req.Flow, "runner.run", "hook reported failure", "name", c.Name, "hook", hookName, "message", result.Message)
		return result, nil
	}

	merged := c
	if merged.Description == "" {
		merged.Description = mod.Description
	}
	if result.Message != "" {
		merged.Description = result.Message
	}
	merged.Tags = append(append([]string{}, merged.Tags...), mod.Tags...)

	verb := "committed"
	if hookName == "rollback" {
		verb = "rolled back"
	}
	return change.OkMessage("Migration "+verb, merged), nil
}

// Compare, Check are boundary delegations left to concrete backends;
// Base has no default since neither operation is defined over the
// shared skeleton (spec §4.G: these are simple delegations at the
// Service layer, not part of the commit/rollback skeleton).
