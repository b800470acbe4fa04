package persistence

import (
	"context"

	"persistgo/storage"
)

// quickAdapter opens its database for each operation and closes it again,
// so one instance can be shared for the life of the process. In-memory
// databases are pinned instead: one connection stays open until the
// registry is closed.
type quickAdapter struct {
	name   string
	src    *storage.Source
	pinned *sqlAdapter
}

func (q *quickAdapter) with(ctx context.Context, fn func(a *sqlAdapter) error) error {
	if q.pinned != nil {
		return fn(q.pinned)
	}
	m, err := q.src.Open(ctx, q.name)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	a, err := newSQLAdapter(q.name, m)
	if err != nil {
		return err
	}
	return fn(a)
}

func (q *quickAdapter) Store(ctx context.Context, key string, obj any) (string, error) {
	var out string
	err := q.with(ctx, func(a *sqlAdapter) error {
		var err error
		out, err = a.Store(ctx, key, obj)
		return err
	})
	return out, err
}

func (q *quickAdapter) Insert(ctx context.Context, key string, obj any) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.Insert(ctx, key, obj) })
}

func (q *quickAdapter) Update(ctx context.Context, key string, obj any) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.Update(ctx, key, obj) })
}

func (q *quickAdapter) Find(ctx context.Context, key string, dst any) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.Find(ctx, key, dst) })
}

func (q *quickAdapter) FindAll(ctx context.Context, dst any) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.FindAll(ctx, dst) })
}

func (q *quickAdapter) FindPage(ctx context.Context, dst any, offset, limit int) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.FindPage(ctx, dst, offset, limit) })
}

func (q *quickAdapter) Stat(ctx context.Context, sample any, key string) (ObjectInfo, error) {
	var info ObjectInfo
	err := q.with(ctx, func(a *sqlAdapter) error {
		var err error
		info, err = a.Stat(ctx, sample, key)
		return err
	})
	return info, err
}

func (q *quickAdapter) Count(ctx context.Context, sample any) (int64, error) {
	var n int64
	err := q.with(ctx, func(a *sqlAdapter) error {
		var err error
		n, err = a.Count(ctx, sample)
		return err
	})
	return n, err
}

func (q *quickAdapter) Delete(ctx context.Context, sample any, key string) error {
	return q.with(ctx, func(a *sqlAdapter) error { return a.Delete(ctx, sample, key) })
}

func (q *quickAdapter) Truncate(ctx context.Context, sample any) (int64, error) {
	var n int64
	err := q.with(ctx, func(a *sqlAdapter) error {
		var err error
		n, err = a.Truncate(ctx, sample)
		return err
	})
	return n, err
}

func (q *quickAdapter) Database() string { return q.name }

// Close is a no-op: quick adapters hold no connection between operations
// and stay registered until the registry is closed.
func (q *quickAdapter) Close() error { return nil }

// release closes a pinned database. QuickRegistry.Close calls it.
func (q *quickAdapter) release() error {
	if q.pinned == nil {
		return nil
	}
	return q.pinned.Close()
}
