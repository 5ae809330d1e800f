package sqltracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/deltaeng/delta/internal/change"
)

// These tests exercise a real, temp-file SQLite database rather than a
// mock, matching the teacher's own migrations.go test style of driving
// actual SQLite instead of stubbing database/sql.

func newTestTracker(t *testing.T) *Persistence {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "delta.db")
	base, err := New(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return base.Persistence.(*Persistence)
}

func TestConfigureCreatesTableIdempotently(t *testing.T) {
	p := newTestTracker(t)
	ctx := context.Background()

	if _, err := p.Configure(ctx, change.Request{}); err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	if _, err := p.Configure(ctx, change.Request{}); err != nil {
		t.Fatalf("second Configure: %v", err)
	}
}

func TestAddListLast(t *testing.T) {
	p := newTestTracker(t)
	ctx := context.Background()
	if _, err := p.Configure(ctx, change.Request{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	changes := []change.Change{
		{Name: "a", File: "a.commit.js", Extension: "js", Applied: base},
		{Name: "b", File: "b.commit.js", Extension: "js", Applied: base.AddDate(0, 0, 1)},
	}

	result, err := p.Add(ctx, changes, change.Request{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	ids, ok := result.Data.([]string)
	if !ok || len(ids) != 2 {
		t.Fatalf("expected 2 inserted ids, got %+v", result.Data)
	}

	list, err := p.List(ctx, change.Request{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Fatalf("expected [a b] ordered by applied, got %+v", list)
	}

	last, err := p.Last(ctx, change.Request{})
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last == nil || last.Name != "b" {
		t.Fatalf("expected last=b, got %+v", last)
	}
}

func TestAddRollsBackOnFirstError(t *testing.T) {
	p := newTestTracker(t)
	ctx := context.Background()
	if _, err := p.Configure(ctx, change.Request{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	dup := change.Change{ID: "same-id", Name: "a", File: "a.commit.js", Applied: time.Now()}
	if _, err := p.Add(ctx, []change.Change{dup}, change.Request{}); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	result, err := p.Add(ctx, []change.Change{dup}, change.Request{})
	if err != nil {
		t.Fatalf("Add should report a failed Result, not an error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected duplicate primary key insert to fail")
	}

	list, err := p.List(ctx, change.Request{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the failed batch to leave exactly 1 row, got %d", len(list))
	}
}

func TestDeleteByFileAndName(t *testing.T) {
	p := newTestTracker(t)
	ctx := context.Background()
	if _, err := p.Configure(ctx, change.Request{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	c := change.Change{Name: "a", File: "a.commit.js", Applied: time.Now()}
	if _, err := p.Add(ctx, []change.Change{c}, change.Request{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := p.Delete(ctx, []change.Change{c}, change.Request{})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !result.Success || result.Data.(int) != 1 {
		t.Fatalf("expected 1 row removed, got %+v", result)
	}

	list, err := p.List(ctx, change.Request{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty log after delete, got %+v", list)
	}
}
