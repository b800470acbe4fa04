package persistence_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistgo/persistence"
	"persistgo/storage"
)

type metric struct {
	Name  string `db:"name"`
	Value int    `db:"value"`
}

func Test_RawQuery_ShouldExecuteCallerSQL(t *testing.T) {
	ctx := context.Background()
	f := persistence.New()
	q, err := f.RawQuery(ctx, &storage.Source{Dir: t.TempDir()}, "reports")
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.Equal(t, "reports", q.Database())
	assert.Equal(t, storage.DialectSQLite, q.Dialect())

	_, err = q.Exec(ctx, `CREATE TABLE metric (name TEXT PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)

	for _, m := range []metric{{"cpu", 3}, {"mem", 7}} {
		res, err := q.Exec(ctx, `INSERT INTO metric (name, value) VALUES (?, ?)`, m.Name, m.Value)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	}

	var all []metric
	require.NoError(t, q.Select(ctx, &all, `SELECT name, value FROM metric ORDER BY name`))
	assert.Equal(t, []metric{{"cpu", 3}, {"mem", 7}}, all)

	var one metric
	require.NoError(t, q.Get(ctx, &one, `SELECT name, value FROM metric WHERE name = ?`, "mem"))
	assert.Equal(t, 7, one.Value)

	var total int
	require.NoError(t, q.QueryRow(ctx, `SELECT SUM(value) FROM metric`).Scan(&total))
	assert.Equal(t, 10, total)

	rows, err := q.Query(ctx, `SELECT name FROM metric WHERE value > ?`, 5)
	require.NoError(t, err)
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"mem"}, names)

	err = q.Get(ctx, &one, `SELECT name, value FROM metric WHERE name = ?`, "disk")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
