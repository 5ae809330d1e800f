package runner

import (
	"os"
	"testing"
	"time"
)

func TestCreateModulePair(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	commitPath, rollbackPath, err := Create(dir, "seed-users", KindModule, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, path := range []string{commitPath, rollbackPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Fatalf("expected module artifact mode 0644, got %v", info.Mode().Perm())
		}
	}

	if got, want := commitPath[len(dir)+1:], "20240304050607.seed-users.commit.js"; got != want {
		t.Fatalf("expected commit filename %q, got %q", want, got)
	}
}

func TestCreateShellPairIsExecutable(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	commitPath, _, err := Create(dir, "reindex", KindShell, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	info, err := os.Stat(commitPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("expected shell artifact mode 0755, got %v", info.Mode().Perm())
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Create(dir, "x", Kind("bogus"), time.Now()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
