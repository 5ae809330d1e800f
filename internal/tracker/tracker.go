// Package tracker implements the shared filesystem-scan and set-algebra
// logic every persistence backend reuses (spec §4.C), as a concrete
// helper type (Base) that wraps a backend's Persistence and delegates
// to it — replacing the original's BaseTracker/subclass inheritance with Go
// composition per the redesign note in spec §9.
package tracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
)

// Source is the opaque backend-specific configuration handle returned
// by Configure (spec §4.C) — e.g. a *mongo.Collection or a *sql.DB.
type Source any

// Tracker is the public operation set from spec §4.C. Concrete
// backends satisfy it by supplying a Persistence wrapped in a *Base.
type Tracker interface {
	Configure(ctx context.Context, req change.Request) (Source, error)
	Add(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error)
	Delete(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error)
	List(ctx context.Context, req change.Request) ([]change.Change, error)
	Last(ctx context.Context, req change.Request) (*change.Change, error)
	Info(ctx context.Context, req change.Request) (change.TrackerInfo, error)
	Status(ctx context.Context, req change.Request) (change.Result, error)
	Available(ctx context.Context, req change.Request) ([]change.Change, error)
	Missing(ctx context.Context, req change.Request) ([]change.Change, error)
}

// Persistence is the small set of backend-specific operations a
// concrete tracker must provide; Base supplies everything else (scan,
// info composition, status rendering).
type Persistence interface {
	// Configure performs idempotent backend initialization (creating a
	// collection/table and its indexes) and returns the opaque handle.
	Configure(ctx context.Context, req change.Request) (Source, error)

	// Add appends changes to the applied log, order-preserving,
	// atomic-per-batch where the backend supports it.
	Add(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error)

	// Delete removes entries matching each input's (file, name) pair.
	Delete(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error)

	// List returns the entire applied log, ordered by Created ascending.
	List(ctx context.Context, req change.Request) ([]change.Change, error)

	// Last returns the most recently applied change, or nil.
	Last(ctx context.Context, req change.Request) (*change.Change, error)

	// Missing computes applied-log entries whose filesystem artifact is
	// absent from the current scan bag. The default Base behavior (when
	// a Persistence implementation declines to override this via
	// embedding NoMissing) is an empty slice.
	Missing(ctx context.Context, req change.Request, scanned []change.Change) ([]change.Change, error)

	// LockPath returns a filesystem path Base can flock() to serialize
	// Configure across OS processes. Backends with no natural directory
	// (e.g. a remote Mongo cluster) can return "" to opt out.
	LockPath() string
}

// NoMissing can be embedded by a Persistence implementation that has no
// efficient way to compute the missing set; Missing always returns nil.
type NoMissing struct{}

func (NoMissing) Missing(context.Context, change.Request, []change.Change) ([]change.Change, error) {
	return nil, nil
}

// Base implements the Tracker operations that are identical across
// backends: filesystem scan, info composition, status rendering.
// Concrete trackers supply a Persistence that Base holds.
type Base struct {
	Persistence Persistence
	Logger      logging.Logger

	mu            sync.Mutex
	configured    bool
	currentSource Source
}

// NewBase wires a Persistence implementation into a Base tracker helper.
func NewBase(p Persistence, logger logging.Logger) *Base {
	if logger == nil {
		logger = logging.Discard
	}
	return &Base{Persistence: p, Logger: logger}
}

// Configure is idempotent: a second call on the same Base instance is a
// no-op that returns the previously-obtained Source. The first call
// acquires an flock on Persistence.LockPath() (when non-empty) to
// serialize configuration across OS processes, generalizing the
// teacher's EXCLUSIVE-transaction migration guard
// (internal/storage/sqlite: RunMigrations) to the Tracker boundary.
func (b *Base) Configure(ctx context.Context, req change.Request) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configured {
		return b.currentSource, nil
	}

	if path := b.Persistence.LockPath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("tracker: preparing lock directory: %w", err)
		}
		l := flock.New(path)
		locked, err := l.TryLockContext(ctx, 50*time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("tracker: acquiring configure lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("tracker: another process is configuring %s", path)
		}
		defer func() { _ = l.Unlock() }()
	}

	source, err := b.Persistence.Configure(ctx, req)
	if err != nil {
		return nil, err
	}

	b.configured = true
	b.currentSource = source
	return source, nil
}

// ensureConfigured lazily runs Configure on first use, mirroring the
// BaseRunner's lazy-configure-on-commit behavior from spec §4.E applied
// to the Tracker side of the engine.
func (b *Base) ensureConfigured(ctx context.Context, req change.Request) error {
	_, err := b.Configure(ctx, req)
	return err
}

// Add appends changes to the applied log. Empty input is a success with
// empty data (spec §4.C).
func (b *Base) Add(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error) {
	if len(changes) == 0 {
		return change.Ok([]string{}), nil
	}
	if err := b.ensureConfigured(ctx, req); err != nil {
		return change.Result{}, err
	}
	return b.Persistence.Add(ctx, changes, req)
}

// Delete removes entries matching each input's (file, name) pair.
func (b *Base) Delete(ctx context.Context, changes []change.Change, req change.Request) (change.Result, error) {
	if len(changes) == 0 {
		return change.Ok(0), nil
	}
	if err := b.ensureConfigured(ctx, req); err != nil {
		return change.Result{}, err
	}
	return b.Persistence.Delete(ctx, changes, req)
}

// List returns the entire applied log, ordered by Created ascending.
func (b *Base) List(ctx context.Context, req change.Request) ([]change.Change, error) {
	if err := b.ensureConfigured(ctx, req); err != nil {
		return nil, err
	}
	return b.Persistence.List(ctx, req)
}

// Last returns the most recently applied change, or nil.
func (b *Base) Last(ctx context.Context, req change.Request) (*change.Change, error) {
	if err := b.ensureConfigured(ctx, req); err != nil {
		return nil, err
	}
	return b.Persistence.Last(ctx, req)
}

// scanPredicate is evaluated per discovered Change; true means the
// Change belongs in the "available" bag, false in the "rejected" bag.
type scanPredicate func(change.Change) bool

// scan implements the shared algorithm from spec §4.C: read req.Path,
// extension-filter, parse filenames, stat when needed, evaluate the
// predicate, and return two ordered bags.
func (b *Base) scan(ctx context.Context, req change.Request, predicate scanPredicate) (available, rejected []change.Change, err error) {
	path := req.Path
	if path == "" {
		path = "."
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		b.Logger.Warn(req.Flow, "tracker.scan", "scan path unreadable, treating as empty", "path", path, "error", err.Error())
		return nil, nil, nil
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := extensionOf(name)
		if req.Extension != "" && ext != req.Extension {
			continue
		}

		base := name[:len(name)-len(filepath.Ext(name))]
		created, logicalName := change.ParseFilename(base)

		full := filepath.Join(path, name)

		needStat := created == nil || req.Stat
		if needStat {
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if created == nil {
				bt := birthtime(full, info)
				created = &bt
			}
		}

		c := change.Change{
			Name:      logicalName,
			File:      full,
			Path:      path,
			Extension: ext,
			Created:   *created,
			Flow:      req.Flow,
		}

		if predicate(c) {
			available = append(available, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		if available[i].Created.Equal(available[j].Created) {
			return available[i].File < available[j].File
		}
		return available[i].Created.Before(available[j].Created)
	})

	return available, rejected, nil
}

func extensionOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}

// Available returns filesystem entries eligible for commit: newer than
// the last applied change, matching req.Filter.
func (b *Base) Available(ctx context.Context, req change.Request) ([]change.Change, error) {
	info, err := b.Info(ctx, req)
	if err != nil {
		return nil, err
	}
	return info.Available, nil
}

// Missing returns applied entries whose filesystem artifact is absent.
func (b *Base) Missing(ctx context.Context, req change.Request) ([]change.Change, error) {
	info, err := b.Info(ctx, req)
	if err != nil {
		return nil, err
	}
	return info.Missing, nil
}

// Info composes the full TrackerInfo view per the algorithm in spec
// §4.C: fetch Last, scan with a "newer than Last" predicate, narrow the
// newer entries by the optional name filter, apply the count
// take-limit, and delegate
// the missing-on-disk computation to the backend.
func (b *Base) Info(ctx context.Context, req change.Request) (change.TrackerInfo, error) {
	if err := b.ensureConfigured(ctx, req); err != nil {
		return change.TrackerInfo{}, err
	}

	last, err := b.Persistence.Last(ctx, req)
	if err != nil {
		return change.TrackerInfo{}, fmt.Errorf("tracker: fetching last applied change: %w", err)
	}

	nameRe, err := req.Filter.NameRegexp()
	if err != nil {
		return change.TrackerInfo{}, fmt.Errorf("tracker: compiling name filter: %w", err)
	}

	// The superseded-on-disk bag is a function of Created vs. Last
	// alone; the name filter only narrows which of the newer entries
	// are eligible to commit, it must not reclassify an unrelated-but-
	// newer file as superseded.
	newerThanLast, supersededOnDisk, err := b.scan(ctx, req, func(c change.Change) bool {
		return last == nil || c.Created.After(last.Created)
	})
	if err != nil {
		return change.TrackerInfo{}, err
	}

	candidates := newerThanLast
	if nameRe != nil {
		candidates = nil
		for _, c := range newerThanLast {
			matched := nameRe.MatchString(c.File)
			if req.Filter.Type == change.FilterExclude {
				matched = !matched
			}
			if matched {
				candidates = append(candidates, c)
			}
		}
	}

	available := candidates
	var ignored []change.Change
	if req.Filter.Count > 0 && len(available) > req.Filter.Count {
		ignored = append(ignored, available[req.Filter.Count:]...)
		available = available[:req.Filter.Count]
	}

	missing, err := b.Persistence.Missing(ctx, req, append(newerThanLast, supersededOnDisk...))
	if err != nil {
		return change.TrackerInfo{}, fmt.Errorf("tracker: computing missing set: %w", err)
	}

	return change.TrackerInfo{
		Filter:    req.Filter,
		Last:      last,
		Available: available,
		Applied:   supersededOnDisk,
		Ignored:   ignored,
		Missing:   missing,
	}, nil
}

// statusView is the basename-projected rendering Status returns.
type statusView struct {
	Last      string   `json:"last,omitempty"`
	Applied   []string `json:"applied"`
	Missing   []string `json:"missing"`
	Ignored   []string `json:"ignored"`
	Available []string `json:"available"`
}

// Status renders Info for human display: basenames only (spec §4.C).
func (b *Base) Status(ctx context.Context, req change.Request) (change.Result, error) {
	info, err := b.Info(ctx, req)
	if err != nil {
		return change.Result{}, err
	}

	view := statusView{
		Applied:   basenames(info.Applied),
		Missing:   basenames(info.Missing),
		Ignored:   basenames(info.Ignored),
		Available: basenames(info.Available),
	}
	if info.Last != nil {
		view.Last = filepath.Base(info.Last.File)
	}

	return change.Ok(view), nil
}

func basenames(changes []change.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = filepath.Base(c.File)
	}
	return out
}

func birthtime(path string, info os.FileInfo) time.Time {
	if bt, ok := platformBirthtime(path, info); ok {
		return bt
	}
	return info.ModTime()
}
