// Package registry describes the driver registry consumer contract
// (spec §6): a name or Spec resolves to a Driver instance. The
// dependency-injection container that actually owns driver lifecycles
// is an external collaborator (spec §1) — Static below is the
// in-process stand-in this module uses for tests and for standalone
// embedding.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// Driver is an opaque resolved dependency: a Tracker, a Runner, or a
// user-authored migration module, depending on the key that produced it.
type Driver any

// Spec additionally describes a user-authored migration artifact that
// must be loaded from disk rather than looked up by a flat key.
type Spec struct {
	Key        string
	File       string
	Type       string // "instance"
	ModuleType string
}

// Registry resolves a flat key or a Spec to a Driver.
type Registry interface {
	Get(ctx context.Context, keyOrSpec any) (Driver, error)
}

// Static is a read-only-at-request-time, map-backed Registry. Entries
// are registered once at startup (mirroring the DI container's module
// loading) and never mutated concurrently with Get.
type Static struct {
	mu       sync.RWMutex
	drivers  map[string]Driver
	resolver func(ctx context.Context, spec Spec) (Driver, error)
}

// NewStatic builds an empty Static registry. resolver, if non-nil,
// handles Spec lookups (user-authored migration modules); it may be nil
// for registries that only ever serve flat-key drivers (runner/tracker
// instances).
func NewStatic(resolver func(ctx context.Context, spec Spec) (Driver, error)) *Static {
	return &Static{
		drivers:  make(map[string]Driver),
		resolver: resolver,
	}
}

// Register binds a flat key to a driver instance.
func (s *Static) Register(key string, driver Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[key] = driver
}

// Get implements Registry.
func (s *Static) Get(ctx context.Context, keyOrSpec any) (Driver, error) {
	switch v := keyOrSpec.(type) {
	case string:
		s.mu.RLock()
		d, ok := s.drivers[v]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("registry: no driver registered for key %q", v)
		}
		return d, nil
	case Spec:
		if s.resolver == nil {
			return nil, fmt.Errorf("registry: no spec resolver configured for key %q", v.Key)
		}
		return s.resolver(ctx, v)
	default:
		return nil, fmt.Errorf("registry: unsupported lookup type %T", keyOrSpec)
	}
}
