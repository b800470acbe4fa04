package storage

import (
	"context"
	"fmt"
	"sync"
)

// Adapter wraps one live connection to a backend.
type Adapter interface {
	Dialect() string
	Close() error
}

// Driver applies migrations and exposes the repositories for one adapter.
type Driver interface {
	Dialect() string
	Migrate(ctx context.Context) error
	Repos
}

type (
	adapterMatcher func(conn any) bool
	adapterFactory func(conn any) (Adapter, error)
	driverFactory  func(adapter Adapter) (Driver, error)
)

// adapterEntry pairs a connection matcher with its factory. Entries are
// tried in registration order.
type adapterEntry struct {
	match   adapterMatcher
	factory adapterFactory
}

var (
	registryMu      sync.RWMutex
	adapterRegistry []adapterEntry
	driverRegistry  = make(map[string]driverFactory)
)

func RegisterAdapter(match adapterMatcher, factory adapterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapterRegistry = append(adapterRegistry, adapterEntry{match: match, factory: factory})
}

func RegisterDriver(dialect string, factory driverFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	driverRegistry[dialect] = factory
}

// RegistryAdapter wraps conn with the first matching adapter.
func RegistryAdapter(conn any) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, entry := range adapterRegistry {
		if entry.match(conn) {
			return entry.factory(conn)
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrNoAdapter, conn)
}

func RegistryDriver(adapter Adapter) (Driver, error) {
	dialect := adapter.Dialect()
	registryMu.RLock()
	f, ok := driverRegistry[dialect]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDriver, dialect)
	}
	return f(adapter)
}
