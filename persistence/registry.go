package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// QuickFactory builds the quick adapter for one database name.
type QuickFactory func(ctx context.Context, name string) (SQLAdapter, error)

// QuickRegistry caches at most one quick adapter per database name.
// Construction for one name never blocks lookups or construction for others.
type QuickRegistry struct {
	mu       sync.RWMutex
	adapters map[string]SQLAdapter
	group    singleflight.Group
	factory  QuickFactory
	logger   Logger
}

// NewQuickRegistry returns an empty registry. factory is used when
// GetOrCreate is called without one and may be nil.
func NewQuickRegistry(factory QuickFactory) *QuickRegistry {
	return &QuickRegistry{
		adapters: make(map[string]SQLAdapter),
		factory:  factory,
	}
}

func (r *QuickRegistry) lookup(name string) (SQLAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// GetOrCreate returns the adapter cached for name, building it with factory
// (or the registry default) when absent. Concurrent callers for the same
// name share one construction. Each caller stops waiting when its own ctx
// is done; the construction itself is not cancelled by any single caller.
// Failed constructions are not cached.
func (r *QuickRegistry) GetOrCreate(ctx context.Context, name string, factory QuickFactory) (SQLAdapter, error) {
	if a, ok := r.lookup(name); ok {
		return a, nil
	}
	if factory == nil {
		factory = r.factory
	}
	if factory == nil {
		return nil, ErrNoFactory
	}

	build := context.WithoutCancel(ctx)
	ch := r.group.DoChan(name, func() (any, error) {
		// A previous flight may have finished between lookup and Do.
		if a, ok := r.lookup(name); ok {
			return a, nil
		}
		logDebug(r.logger, logMsgRegistryBuild, logAttrDatabase, name)
		a, err := factory(build, name)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("quick adapter factory returned nil for %q", name)
		}
		r.mu.Lock()
		r.adapters[name] = a
		r.mu.Unlock()
		return a, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(SQLAdapter), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *QuickRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Names returns the cached database names in sorted order.
func (r *QuickRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Close tears down every cached adapter and empties the registry. It is
// meant for process shutdown; there is no per-name removal.
func (r *QuickRegistry) Close() error {
	r.mu.Lock()
	adapters := r.adapters
	r.adapters = make(map[string]SQLAdapter)
	r.mu.Unlock()

	logDebug(r.logger, logMsgRegistryClose, logAttrCount, len(adapters))

	var errs []error
	for name, a := range adapters {
		if err := closeCached(a); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// releaser is implemented by adapters whose Close is a no-op for callers
// but which still hold resources until registry teardown.
type releaser interface {
	release() error
}

func closeCached(a SQLAdapter) error {
	if r, ok := a.(releaser); ok {
		return r.release()
	}
	return a.Close()
}
