// Package mongorunner is the module-loader runner from spec §4.F: it
// wraps the BaseRunner skeleton in a Mongo session + transaction per
// change, invoking the hook with tool {db, collection, session}.
package mongorunner

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/registry"
	"github.com/deltaeng/delta/internal/runner"
)

// Tool is the backend-provided object passed to module hooks. Assistant
// is an opaque pass-through handle (spec §4.F tool object includes it
// without defining its shape in the surviving source material — see
// DESIGN.md); callers populate req.Params["assistant"] with whatever
// helper their hooks expect, or leave it nil.
type Tool struct {
	DB         *mongo.Database
	Collection *mongo.Collection
	Session    mongo.Session
	Assistant  any
}

// Executor implements runner.Executor against a Mongo database,
// opening one session + transaction per invocation.
type Executor struct {
	client *mongo.Client
	db     *mongo.Database
}

// New builds a mongorunner Executor wrapped in a runner.Base.
func New(client *mongo.Client, dbName string, reg registry.Registry, logger logging.Logger, keyPrefix string) *runner.Base {
	exec := &Executor{client: client, db: client.Database(dbName)}
	return runner.NewBase(exec, reg, logger, keyPrefix)
}

// Configure requires nothing beyond the client already being connected;
// lazily verified here with a Ping.
func (e *Executor) Configure(ctx context.Context, _ change.Request) error {
	if err := e.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongorunner: connecting: %w", err)
	}
	return nil
}

// Invoke opens a session, starts a transaction, invokes the hook, and
// commits or aborts based on the hook's outcome, always ending the
// session in a deferred stage (spec §4.F step 4).
func (e *Executor) Invoke(ctx context.Context, hookName string, mod runner.Module, c change.Change, req change.Request) (change.Result, error) {
	collName := "delta_migrations"
	if v, ok := req.Params["collection"].(string); ok && v != "" {
		collName = v
	}
	coll := e.db.Collection(collName)

	session, err := e.client.StartSession()
	if err != nil {
		return change.Result{}, fmt.Errorf("mongorunner: starting session: %w", err)
	}
	defer session.EndSession(ctx)

	hook := mod.Commit
	if hookName == "rollback" {
		hook = mod.Rollback
	}
	if hook == nil {
		return change.Result{}, fmt.Errorf("mongorunner: change %s has no %s hook", c.Name, hookName)
	}

	var result change.Result
	txnErr := mongo.WithSession(ctx, session, func(sc context.Context) error {
		if err := session.StartTransaction(); err != nil {
			return fmt.Errorf("mongorunner: starting transaction: %w", err)
		}

		tool := Tool{DB: e.db, Collection: coll, Session: session, Assistant: req.Params["assistant"]}
		r, err := hook(sc, tool)
		if err != nil {
			_ = session.AbortTransaction(sc)
			return err
		}
		if !r.Success {
			_ = session.AbortTransaction(sc)
			result = r
			return nil
		}

		if err := session.CommitTransaction(sc); err != nil {
			return fmt.Errorf("mongorunner: committing transaction: %w", err)
		}
		result = r
		return nil
	})
	if txnErr != nil {
		return change.Result{}, txnErr
	}
	return result, nil
}
