package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deltaeng/delta/internal/change"
)

// fakePersistence is an in-memory Persistence double: Configure is a
// no-op, Add/Delete mutate an in-memory applied log, Last/List read it
// back, and Missing does the (file,name) set-difference spec.md §4.D
// describes for the relational backend.
type fakePersistence struct {
	applied []change.Change
}

func (p *fakePersistence) LockPath() string { return "" }

func (p *fakePersistence) Configure(context.Context, change.Request) (Source, error) {
	return nil, nil
}

func (p *fakePersistence) Add(_ context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	p.applied = append(p.applied, changes...)
	return change.Ok(len(changes)), nil
}

func (p *fakePersistence) Delete(_ context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	return change.Ok(len(changes)), nil
}

func (p *fakePersistence) List(context.Context, change.Request) ([]change.Change, error) {
	return p.applied, nil
}

func (p *fakePersistence) Last(context.Context, change.Request) (*change.Change, error) {
	if len(p.applied) == 0 {
		return nil, nil
	}
	c := p.applied[len(p.applied)-1]
	return &c, nil
}

func (p *fakePersistence) Missing(_ context.Context, _ change.Request, scanned []change.Change) ([]change.Change, error) {
	onDisk := make(map[string]bool, len(scanned))
	for _, c := range scanned {
		onDisk[c.File+"\x00"+c.Name] = true
	}
	var missing []change.Change
	for _, c := range p.applied {
		if !onDisk[c.File+"\x00"+c.Name] {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("// migration\n"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// E1: empty directory, empty log.
func TestInfoEmptyState(t *testing.T) {
	dir := t.TempDir()
	p := &fakePersistence{}
	b := NewBase(p, nil)

	info, err := b.Info(context.Background(), change.Request{Path: dir, Extension: "js"})
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(info.Available) != 0 || len(info.Missing) != 0 || len(info.Applied) != 0 {
		t.Fatalf("expected all-empty TrackerInfo, got %+v", info)
	}
}

// E2-shaped: two on-disk changes, none applied yet, both available in
// timestamp order.
func TestAvailableOrdersByCreated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240102000000.b.commit.js")
	writeFile(t, dir, "20240101000000.a.commit.js")

	p := &fakePersistence{}
	b := NewBase(p, nil)

	available, err := b.Available(context.Background(), change.Request{Path: dir, Extension: "js"})
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(available) != 2 || available[0].Name != "a" || available[1].Name != "b" {
		t.Fatalf("expected [a b] in that order, got %+v", available)
	}
}

// E4: applied log references a and b; only b exists on disk. missing
// should return a; available should be empty (b is already applied
// and not newer than last).
func TestMissingWhenArtifactDeleted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240102000000.b.commit.js")

	full := filepath.Join(dir, "20240101000000.a.commit.js")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &fakePersistence{applied: []change.Change{
		{Name: "a", File: full, Created: created, Applied: created},
		{Name: "b", File: filepath.Join(dir, "20240102000000.b.commit.js"), Created: created.AddDate(0, 0, 1), Applied: created.AddDate(0, 0, 1)},
	}}
	b := NewBase(p, nil)
	req := change.Request{Path: dir, Extension: "js"}

	missing, err := b.Missing(context.Background(), req)
	if err != nil {
		t.Fatalf("Missing: %v", err)
	}
	if len(missing) != 1 || missing[0].Name != "a" {
		t.Fatalf("expected missing [a], got %+v", missing)
	}

	available, err := b.Available(context.Background(), req)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("expected no available changes, got %+v", available)
	}
}

// E5: three pending files, filter.count=1 caps Available at 1 and
// reports the other two as Ignored.
func TestFilterCountCapsAvailable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "20240101000000.a.commit.js")
	writeFile(t, dir, "20240102000000.b.commit.js")
	writeFile(t, dir, "20240103000000.c.commit.js")

	p := &fakePersistence{}
	b := NewBase(p, nil)

	info, err := b.Info(context.Background(), change.Request{Path: dir, Extension: "js", Filter: change.Filter{Count: 1}})
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(info.Available) != 1 || info.Available[0].Name != "a" {
		t.Fatalf("expected available [a], got %+v", info.Available)
	}
	if len(info.Ignored) != 2 {
		t.Fatalf("expected 2 ignored changes, got %d", len(info.Ignored))
	}
}

func TestConfigureIsIdempotent(t *testing.T) {
	p := &fakePersistence{}
	b := NewBase(p, nil)
	req := change.Request{Path: t.TempDir()}

	first, err := b.Configure(context.Background(), req)
	if err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	second, err := b.Configure(context.Background(), req)
	if err != nil {
		t.Fatalf("second Configure: %v", err)
	}
	if first != second {
		t.Fatalf("expected Configure to be idempotent, got %v then %v", first, second)
	}
}

func TestScanUnreadableDirectoryYieldsEmptySets(t *testing.T) {
	p := &fakePersistence{}
	b := NewBase(p, nil)

	info, err := b.Info(context.Background(), change.Request{Path: filepath.Join(t.TempDir(), "does-not-exist")})
	if err != nil {
		t.Fatalf("expected scan errors to be swallowed, got %v", err)
	}
	if len(info.Available) != 0 {
		t.Fatalf("expected empty available set, got %+v", info.Available)
	}
}
