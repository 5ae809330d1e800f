package main

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltaeng/delta/internal/registry"
	"github.com/deltaeng/delta/internal/runner/mongorunner"
	"github.com/deltaeng/delta/internal/runner/mongoshrunner"
	"github.com/deltaeng/delta/internal/runner/shellrunner"
	"github.com/deltaeng/delta/internal/tracker/mongotracker"
	"github.com/deltaeng/delta/internal/tracker/sqltracker"
)

// buildRegistry wires the concrete backends named "mdb", "sqlite",
// "shell", and "mongosh" into a registry.Static, connecting only the
// backend(s) the caller actually needs (driven by env vars, matching
// the KOZEN_DELTA_* ambient-config convention in spec §6).
func buildRegistry(ctx context.Context, keyPrefix string) (*registry.Static, func(), error) {
	reg := registry.NewStatic(nil)
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if uri := os.Getenv("DELTA_MONGO_URI"); uri != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, fmt.Errorf("delta: connecting to mongo: %w", err)
		}
		closers = append(closers, func() { _ = client.Disconnect(ctx) })

		dbName := os.Getenv("DELTA_MONGO_DATABASE")
		if dbName == "" {
			dbName = "delta"
		}

		reg.Register("delta:tracker:mdb", mongotracker.New(client.Database(dbName), nil, logger))
		reg.Register("delta:runner:mdb", mongorunner.New(client, dbName, reg, logger, keyPrefix))
		reg.Register("delta:runner:mongosh", mongoshrunner.New(uri, reg, logger, keyPrefix))
	}

	if path := os.Getenv("DELTA_SQLITE_PATH"); path != "" {
		sqlTracker, err := sqltracker.New(ctx, path, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("delta: opening sqlite tracker: %w", err)
		}
		reg.Register("delta:tracker:sqlite", sqlTracker)
	}

	reg.Register("delta:runner:shell", shellrunner.New(reg, logger, keyPrefix))

	return reg, closeAll, nil
}
