package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"persistgo/storage"
)

// RawQuery runs caller-supplied SQL against a named database. Queries use
// '?' placeholders, rebound for the dialect. Callers must Close it.
type RawQuery interface {
	Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sqlx.Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	// Select scans all rows into dst, a pointer to a slice.
	Select(ctx context.Context, dst any, query string, args ...any) error
	// Get scans a single row into dst.
	Get(ctx context.Context, dst any, query string, args ...any) error
	Dialect() string
	Database() string
	Close() error
}

type rawQuery struct {
	name    string
	manager *storage.Manager
	db      *sqlx.DB
}

func newRawQuery(name string, m *storage.Manager) (*rawQuery, error) {
	a, ok := m.Adapter().(*storage.SQLAdapter)
	if !ok {
		return nil, fmt.Errorf("%w: raw queries on %s", ErrUnsupported, m.Dialect())
	}
	return &rawQuery{name: name, manager: m, db: a.DB}, nil
}

func (q *rawQuery) Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return q.db.QueryxContext(ctx, q.db.Rebind(query), args...)
}

func (q *rawQuery) QueryRow(ctx context.Context, query string, args ...any) *sqlx.Row {
	return q.db.QueryRowxContext(ctx, q.db.Rebind(query), args...)
}

func (q *rawQuery) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.db.Rebind(query), args...)
}

func (q *rawQuery) Select(ctx context.Context, dst any, query string, args ...any) error {
	return q.db.SelectContext(ctx, dst, q.db.Rebind(query), args...)
}

func (q *rawQuery) Get(ctx context.Context, dst any, query string, args ...any) error {
	return q.db.GetContext(ctx, dst, q.db.Rebind(query), args...)
}

func (q *rawQuery) Dialect() string  { return q.manager.Dialect() }
func (q *rawQuery) Database() string { return q.name }
func (q *rawQuery) Close() error     { return q.manager.Close() }
