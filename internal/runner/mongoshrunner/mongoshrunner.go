// Package mongoshrunner is the shell-evaluator runner from spec §4.F:
// each invocation reads the migration file contents, wraps them in a
// transactional template (start session, start transaction, user code,
// commit/abort, end session), and feeds the wrapped script to an
// interactive mongosh subprocess's stdin.
package mongoshrunner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/registry"
	"github.com/deltaeng/delta/internal/runner"
)

var transactionTemplate = template.Must(template.New("mongosh-txn").Parse(`
const session = db.getMongo().startSession();
session.startTransaction();
try {
{{.Body}}
  session.commitTransaction();
} catch (err) {
  session.abortTransaction();
  throw err;
} finally {
  session.endSession();
}
`))

// Executor implements runner.Executor by shelling out to an
// interactive mongosh process and feeding it the wrapped script.
type Executor struct {
	uri     string
	program string
}

// New builds a mongoshrunner Executor wrapped in a runner.Base.
func New(uri string, reg registry.Registry, logger logging.Logger, keyPrefix string) *runner.Base {
	exec := &Executor{uri: uri, program: "mongosh"}
	return runner.NewBase(exec, reg, logger, keyPrefix)
}

// Configure resolves the mongosh binary from req.Params["program"]
// (default "mongosh").
func (e *Executor) Configure(_ context.Context, req change.Request) error {
	if v, ok := req.Params["program"].(string); ok && v != "" {
		e.program = v
	}
	return nil
}

// Invoke reads the migration file (using the rollback-derived path
// when hookName is "rollback"), wraps its contents in the transactional
// template, and pipes the result to mongosh's stdin. Empty files are
// an error (spec §4.F).
func (e *Executor) Invoke(ctx context.Context, hookName string, _ runner.Module, c change.Change, _ change.Request) (change.Result, error) {
	file := c.File
	if hookName == "rollback" {
		rb := strings.Replace(c.File, ".commit.", ".rollback.", 1)
		if rb == c.File {
			return change.Result{}, fmt.Errorf("mongoshrunner: cannot derive rollback path from %s", c.File)
		}
		file = rb
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return change.Result{}, fmt.Errorf("mongoshrunner: reading %s: %w", file, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return change.Result{}, fmt.Errorf("mongoshrunner: %s is empty", file)
	}

	var script bytes.Buffer
	if err := transactionTemplate.Execute(&script, struct{ Body string }{Body: string(raw)}); err != nil {
		return change.Result{}, fmt.Errorf("mongoshrunner: rendering transaction template: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.program, e.uri)
	cmd.Stdin = &script
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return change.FailMessage(fmt.Sprintf("%v: %s", err, stderr.String())), nil
	}

	return change.Ok(map[string]string{"stdout": stdout.String(), "stderr": stderr.String()}), nil
}
