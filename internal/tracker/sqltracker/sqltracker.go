// Package sqltracker is the relational persistence tracker from spec
// §4.D: a single `migrations` table, created idempotently, with inserts
// wrapped in a single transaction that rolls back on the first row
// error. It is grounded on the teacher's
// internal/storage/sqlite/migrations.go RunMigrations — generalized
// from a baked-in Go-function migration list to arbitrary change.Change
// batches, and on ncruces/go-sqlite3, the teacher's actual (cgo-free,
// WASM-embedded) sqlite driver.
package sqltracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/google/uuid"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/tracker"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS migrations (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	file      TEXT NOT NULL,
	path      TEXT,
	extension TEXT,
	applied   TEXT NOT NULL
)`

// Persistence implements tracker.Persistence against a SQLite database.
type Persistence struct {
	db   *sql.DB
	path string
}

// New opens (or creates) path as a SQLite database and wraps it as a
// Tracker. Connection-string/pooling options beyond the bare file path
// are the concrete driver's concern (spec §1 boundary).
func New(ctx context.Context, path string, logger logging.Logger) (*tracker.Base, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqltracker: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqltracker: connecting: %w", err)
	}

	p := &Persistence{db: db, path: path}
	return tracker.NewBase(p, logger), nil
}

// LockPath serializes Configure across processes sharing the same
// database file, mirroring the teacher's gofrs/flock usage in its sync
// command.
func (p *Persistence) LockPath() string {
	return p.path + ".delta.lock"
}

// Configure creates the migrations table if absent. Idempotent: a
// second CREATE TABLE IF NOT EXISTS is a no-op.
func (p *Persistence) Configure(ctx context.Context, _ change.Request) (tracker.Source, error) {
	if _, err := p.db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("sqltracker: creating migrations table: %w", err)
	}
	return p.db, nil
}

// Add wraps inserts in BEGIN/COMMIT, rolling back on any row error
// (spec §4.D).
func (p *Persistence) Add(ctx context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return change.Result{}, fmt.Errorf("sqltracker: starting transaction: %w", err)
	}

	ids := make([]string, 0, len(changes))
	for i := range changes {
		c := &changes[i]
		if c.Applied.IsZero() {
			c.Applied = time.Now().UTC()
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO migrations (id, name, file, path, extension, applied) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.File, c.Path, c.Extension, c.Applied.Format(time.RFC3339Nano),
		)
		if err != nil {
			_ = tx.Rollback()
			return change.FailMessage(fmt.Sprintf("inserting %s: %v", c.Name, err)), nil
		}
		ids = append(ids, c.ID)
	}

	if err := tx.Commit(); err != nil {
		return change.Result{}, fmt.Errorf("sqltracker: committing insert batch: %w", err)
	}

	return change.Ok(ids), nil
}

// Delete removes rows matching each input's (file, name) pair.
func (p *Persistence) Delete(ctx context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	removed := 0
	for _, c := range changes {
		res, err := p.db.ExecContext(ctx, `DELETE FROM migrations WHERE file = ? AND name = ?`, c.File, c.Name)
		if err != nil {
			return change.Result{}, fmt.Errorf("sqltracker: deleting %s: %w", c.Name, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	return change.Ok(removed), nil
}

// List returns the entire applied log, ordered by applied ascending
// (the relational backend orders by its applied timestamp, which tracks
// Created order within a single engine instance).
func (p *Persistence) List(ctx context.Context, _ change.Request) ([]change.Change, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, file, path, extension, applied FROM migrations ORDER BY applied ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqltracker: listing applied log: %w", err)
	}
	defer rows.Close()

	var out []change.Change
	for rows.Next() {
		c, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Last returns the most recently applied change, ORDER BY applied DESC
// LIMIT 1 (spec §4.D).
func (p *Persistence) Last(ctx context.Context, _ change.Request) (*change.Change, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, name, file, path, extension, applied FROM migrations ORDER BY applied DESC LIMIT 1`)
	c, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqltracker: fetching last applied change: %w", err)
	}
	return &c, nil
}

// Missing returns applied rows whose (file, name) is absent from the
// current scan bag.
func (p *Persistence) Missing(ctx context.Context, req change.Request, scanned []change.Change) ([]change.Change, error) {
	applied, err := p.List(ctx, req)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(scanned))
	for _, c := range scanned {
		onDisk[c.File+"\x00"+c.Name] = true
	}

	var missing []change.Change
	for _, c := range applied {
		if !onDisk[c.File+"\x00"+c.Name] {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(rs rowScanner) (change.Change, error) {
	var c change.Change
	var applied string
	if err := rs.Scan(&c.ID, &c.Name, &c.File, &c.Path, &c.Extension, &applied); err != nil {
		return change.Change{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, applied)
	if err == nil {
		c.Applied = t
		c.Created = t
	}
	return c, nil
}
