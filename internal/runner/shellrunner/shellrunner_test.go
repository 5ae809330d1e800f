package shellrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/runner"
)

func TestConfigureTokenizesProgram(t *testing.T) {
	e := &Executor{}
	req := change.Request{Params: map[string]any{"program": "node --experimental-vm"}}
	if err := e.Configure(context.Background(), req); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if e.program != "node" || len(e.args) != 1 || e.args[0] != "--experimental-vm" {
		t.Fatalf("expected program=node args=[--experimental-vm], got program=%q args=%v", e.program, e.args)
	}
}

func TestConfigureDefaultsToEcho(t *testing.T) {
	e := &Executor{}
	if err := e.Configure(context.Background(), change.Request{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if e.program != "echo" {
		t.Fatalf("expected default program echo, got %q", e.program)
	}
}

func TestInvokeCommitShellsOut(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "20240101000000.seed.commit.js")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	e := &Executor{program: "echo"}
	result, err := e.Invoke(context.Background(), "commit", runner.Module{}, change.Change{Name: "seed", File: file}, change.Request{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestInvokeRollbackRequiresDerivedFile(t *testing.T) {
	dir := t.TempDir()
	commit := filepath.Join(dir, "20240101000000.seed.commit.js")
	if err := os.WriteFile(commit, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	e := &Executor{program: "echo"}
	_, err := e.Invoke(context.Background(), "rollback", runner.Module{}, change.Change{Name: "seed", File: commit}, change.Request{})
	if err == nil {
		t.Fatalf("expected error: rollback file was never created")
	}
}
