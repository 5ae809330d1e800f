package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/registry"
)

type fakeExecutor struct {
	configured bool
	result     change.Result
	err        error
}

func (e *fakeExecutor) Configure(context.Context, change.Request) error {
	e.configured = true
	return nil
}

func (e *fakeExecutor) Invoke(context.Context, string, Module, change.Change, change.Request) (change.Result, error) {
	return e.result, e.err
}

func TestCommitRejectsNonModuleType(t *testing.T) {
	reg := registry.NewStatic(nil)
	exec := &fakeExecutor{}
	base := NewBase(exec, reg, nil, "")

	c := change.Change{Name: "a", Type: change.TypeScript}
	result, err := base.Commit(context.Background(), c, change.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected type gate to reject non-module change")
	}
	if result.Message != change.ErrTypeGate.Error() {
		t.Fatalf("expected type-gate message, got %q", result.Message)
	}
	if exec.configured {
		t.Fatalf("type gate should short-circuit before Configure")
	}
}

func TestCommitResolvesByPrefixedKey(t *testing.T) {
	reg := registry.NewStatic(nil)
	reg.Register("custom:a", Module{Description: "seed data"})
	exec := &fakeExecutor{result: change.OkMessage("done", nil)}
	base := NewBase(exec, reg, nil, "custom:")

	c := change.Change{Name: "a"}
	result, err := base.Commit(context.Background(), c, change.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	merged := result.Data.(change.Change)
	if merged.Description != "done" {
		t.Fatalf("expected hook message to become description, got %q", merged.Description)
	}
}

func TestCommitWrapsHookError(t *testing.T) {
	reg := registry.NewStatic(nil)
	reg.Register("delta:migration:a", Module{})
	exec := &fakeExecutor{err: fmt.Errorf("boom")}
	base := NewBase(exec, reg, nil, "")

	result, err := base.Commit(context.Background(), change.Change{Name: "a"}, change.Request{})
	if err != nil {
		t.Fatalf("hook errors should surface as a failed Result, not a Go error: %v", err)
	}
	if result.Success || result.Message != "boom" {
		t.Fatalf("expected failed result with message boom, got %+v", result)
	}
}

func TestCommitUnresolvedDriverIsAnError(t *testing.T) {
	reg := registry.NewStatic(nil)
	exec := &fakeExecutor{}
	base := NewBase(exec, reg, nil, "")

	_, err := base.Commit(context.Background(), change.Change{Name: "missing"}, change.Request{})
	if err == nil {
		t.Fatalf("expected driver resolution failure to surface as an error")
	}
}
