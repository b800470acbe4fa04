package persistence

import (
	"context"

	"persistgo/storage"
)

// AdapterFactory constructs the adapters the Facade hands out.
type AdapterFactory interface {
	NewSQLAdapter(ctx context.Context, src *storage.Source, name string) (SQLAdapter, error)
	NewRawQuery(ctx context.Context, src *storage.Source, name string) (RawQuery, error)
	NewPreferences(ctx context.Context, src *storage.Source, file string) (PreferencesAdapter, error)
	NewQuickAdapter(ctx context.Context, src *storage.Source, name string) (SQLAdapter, error)
}

// StorageFactory builds adapters on top of storage.Source.
type StorageFactory struct{}

var _ AdapterFactory = StorageFactory{}

func (StorageFactory) NewSQLAdapter(ctx context.Context, src *storage.Source, name string) (SQLAdapter, error) {
	m, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	a, err := newSQLAdapter(name, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return a, nil
}

func (StorageFactory) NewRawQuery(ctx context.Context, src *storage.Source, name string) (RawQuery, error) {
	m, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	q, err := newRawQuery(name, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return q, nil
}

func (StorageFactory) NewPreferences(ctx context.Context, src *storage.Source, file string) (PreferencesAdapter, error) {
	m, err := src.OpenPreferences(ctx)
	if err != nil {
		return nil, err
	}
	p, err := newPrefsAdapter(file, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return p, nil
}

// NewQuickAdapter opens the database once so schema problems surface here
// rather than on first use. In-memory databases stay open.
func (StorageFactory) NewQuickAdapter(ctx context.Context, src *storage.Source, name string) (SQLAdapter, error) {
	m, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if src.InMemory(name) {
		a, err := newSQLAdapter(name, m)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		return &quickAdapter{name: name, src: src, pinned: a}, nil
	}
	_, err = m.Objects()
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return &quickAdapter{name: name, src: src}, nil
}
