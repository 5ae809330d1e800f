// Package shellrunner is the shell-exec runner from spec §4.F:
// configure resolves an interpreter program (default "echo"), commit
// shells out "<program> <file>", and rollback derives the rollback
// path by substituting ".commit." with ".rollback." in the commit
// path. Tokenization of the configured interpreter program (which may
// itself carry arguments, e.g. "node --experimental-vm") uses
// mattn/go-shellwords, grounded on its use in the ry256-slb example's
// internal/core/normalize.go.
package shellrunner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/registry"
	"github.com/deltaeng/delta/internal/runner"
)

const defaultProgram = "echo"

// Tool is the backend-provided object passed to shell hooks: just the
// artifact file path, since the "execution" is the external process
// itself, not an in-process call.
type Tool struct {
	File string
}

// Executor implements runner.Executor by shelling out to a configured
// interpreter program.
type Executor struct {
	program string
	args    []string
}

// New builds a shellrunner Executor wrapped in a runner.Base.
func New(reg registry.Registry, logger logging.Logger, keyPrefix string) *runner.Base {
	return runner.NewBase(&Executor{}, reg, logger, keyPrefix)
}

// Configure resolves the interpreter program from req.Params["program"],
// defaulting to "echo", tokenized with go-shellwords so a configured
// program carrying its own flags splits correctly.
func (e *Executor) Configure(_ context.Context, req change.Request) error {
	program := defaultProgram
	if v, ok := req.Params["program"].(string); ok && v != "" {
		program = v
	}

	parser := shellwords.NewParser()
	tokens, err := parser.Parse(program)
	if err != nil || len(tokens) == 0 {
		tokens = strings.Fields(program)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("shellrunner: empty interpreter program")
	}

	e.program = tokens[0]
	e.args = tokens[1:]
	return nil
}

// Invoke shells out "<program> <args...> <file>" for commit, or the
// rollback-derived file for rollback. When the resolved module supplies
// the matching hook, that hook is called with Tool{File: file} instead
// and no process is started.
func (e *Executor) Invoke(ctx context.Context, hookName string, mod runner.Module, c change.Change, _ change.Request) (change.Result, error) {
	file := c.File
	if hookName == "rollback" {
		rb := strings.Replace(c.File, ".commit.", ".rollback.", 1)
		if rb == c.File {
			return change.Result{}, fmt.Errorf("shellrunner: cannot derive rollback path from %s", c.File)
		}
		if _, err := os.Stat(rb); err != nil {
			return change.Result{}, fmt.Errorf("shellrunner: rollback file %s: %w", rb, err)
		}
		file = rb
	}

	hook := mod.Commit
	if hookName == "rollback" {
		hook = mod.Rollback
	}
	if hook != nil {
		return hook(ctx, Tool{File: file})
	}

	args := append(append([]string{}, e.args...), file)
	cmd := exec.CommandContext(ctx, e.program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return change.FailMessage(fmt.Sprintf("%v: %s", err, stderr.String())), nil
	}

	return change.Ok(map[string]string{"stdout": stdout.String(), "stderr": stderr.String()}), nil
}
