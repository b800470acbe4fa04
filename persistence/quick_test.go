package persistence_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistgo/persistence"
	"persistgo/storage"
)

func Test_QuickAdapter_ShouldPersistBetweenOperations(t *testing.T) {
	ctx := context.Background()
	src := &storage.Source{Dir: t.TempDir()}
	f := persistence.New()
	defer func() { _ = f.Close() }()

	q, err := f.QuickAdapter(ctx, src, "cache")
	require.NoError(t, err)

	_, err = q.Store(ctx, "o-1", Order{ID: 1, Item: "book"})
	require.NoError(t, err)
	require.NoError(t, q.Insert(ctx, "o-2", Order{ID: 2}))
	require.NoError(t, q.Update(ctx, "o-2", Order{ID: 2, Item: "pen"}))

	var got Order
	require.NoError(t, q.Find(ctx, "o-2", &got))
	assert.Equal(t, "pen", got.Item)

	var all []Order
	require.NoError(t, q.FindAll(ctx, &all))
	assert.Len(t, all, 2)

	n, err := q.Count(ctx, Order{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, q.Delete(ctx, Order{}, "o-1"))
	n, err = q.Truncate(ctx, Order{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func Test_QuickAdapter_ShouldSurviveClose(t *testing.T) {
	ctx := context.Background()
	src := &storage.Source{Dir: t.TempDir()}
	f := persistence.New()

	q, err := f.QuickAdapter(ctx, src, "cache")
	require.NoError(t, err)
	require.NoError(t, q.Close())

	_, err = q.Store(ctx, "k", Order{ID: 1})
	require.NoError(t, err)

	again, err := f.Quick(ctx, src)
	require.NoError(t, err)
	assert.Same(t, q, again)
	assert.Equal(t, []string{"cache"}, f.Registry().Names())
}

func Test_QuickAdapter_ShouldFailConstructionForBadSource(t *testing.T) {
	ctx := context.Background()
	f := persistence.New()

	_, err := f.QuickAdapter(ctx, &storage.Source{Dialect: "postgres"}, "cache")
	assert.ErrorIs(t, err, storage.ErrNoDSN)
	assert.Zero(t, f.Registry().Len())

	_, err = f.Config().DefaultDatabase()
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
}

func Test_QuickAdapter_ShouldServeConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	src := &storage.Source{Dir: t.TempDir()}
	f := persistence.New()

	q, err := f.QuickAdapter(ctx, src, "cache")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.Store(ctx, "", Order{ID: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := q.Count(ctx, Order{})
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
}

func Test_QuickAdapter_ShouldKeepInMemoryDatabaseUntilRegistryClose(t *testing.T) {
	tests := map[string]*storage.Source{
		"zero value": {},
		"nil source": nil,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := "quick_mem_" + strings.ReplaceAll(name, " ", "_")
			f := persistence.New()

			q, err := f.QuickAdapter(ctx, src, db)
			require.NoError(t, err)

			_, err = q.Store(ctx, "k", Order{ID: 1, Item: "book"})
			require.NoError(t, err)
			require.NoError(t, q.Close())

			var got Order
			require.NoError(t, q.Find(ctx, "k", &got))
			assert.Equal(t, Order{ID: 1, Item: "book"}, got)

			again, err := f.QuickAdapter(ctx, src, db)
			require.NoError(t, err)
			n, err := again.Count(ctx, Order{})
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			require.NoError(t, f.Close())

			fresh := persistence.New()
			defer func() { _ = fresh.Close() }()
			q2, err := fresh.QuickAdapter(ctx, src, db)
			require.NoError(t, err)
			n, err = q2.Count(ctx, Order{})
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func Test_QuickAdapter_ShouldStayBoundToFirstSource(t *testing.T) {
	ctx := context.Background()
	first := &storage.Source{Dir: t.TempDir()}
	second := &storage.Source{Dir: t.TempDir()}
	f := persistence.New()
	defer func() { _ = f.Close() }()

	q, err := f.QuickAdapter(ctx, first, "cache")
	require.NoError(t, err)
	other, err := f.QuickAdapter(ctx, second, "cache")
	require.NoError(t, err)
	assert.Same(t, q, other)

	_, err = other.Store(ctx, "k", Order{ID: 1})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(first.Dir, "cache.db"))
	assert.NoFileExists(t, filepath.Join(second.Dir, "cache.db"))
}
