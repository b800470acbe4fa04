package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistgo/persistence"
	"persistgo/storage"
)

func newFakeFacade(t *testing.T) (*persistence.Facade, *fakeFactory) {
	t.Helper()
	ff := newFakeFactory()
	return persistence.New(persistence.WithFactory(ff)), ff
}

func Test_Quick_ShouldFailWhenNoDatabaseWasOpened(t *testing.T) {
	f, ff := newFakeFacade(t)

	_, err := f.Quick(context.Background(), nil)
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
	assert.Zero(t, f.Registry().Len())
	assert.Empty(t, ff.calls)
}

func Test_DefaultScopedCalls_ShouldFailWhenNoDatabaseWasOpened(t *testing.T) {
	f, _ := newFakeFacade(t)
	ctx := context.Background()

	_, err := f.SQLAdapter(ctx, nil)
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
	_, err = f.RawQuery(ctx, nil)
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
	_, err = f.QuickAdapter(ctx, nil)
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
}

func Test_SQLAdapter_ShouldReturnFreshInstancesAndRecordDefaultOnce(t *testing.T) {
	f, ff := newFakeFacade(t)
	ctx := context.Background()

	a1, err := f.SQLAdapter(ctx, nil, "orders")
	require.NoError(t, err)
	name, err := f.Config().DefaultDatabase()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)

	a2, err := f.SQLAdapter(ctx, nil, "orders")
	require.NoError(t, err)

	assert.NotSame(t, a1, a2)
	assert.Equal(t, "orders", a1.Database())
	assert.Equal(t, "orders", a2.Database())
	assert.Equal(t, 2, ff.count("sql", "orders"))
	assert.Zero(t, f.Registry().Len())
}

func Test_DefaultDatabase_ShouldStickToFirstOpened(t *testing.T) {
	f, _ := newFakeFacade(t)
	ctx := context.Background()

	_, err := f.SQLAdapter(ctx, nil, "A")
	require.NoError(t, err)
	_, err = f.SQLAdapter(ctx, nil, "B")
	require.NoError(t, err)
	_, err = f.QuickAdapter(ctx, nil, "C")
	require.NoError(t, err)

	a, err := f.SQLAdapter(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", a.Database())

	raw, err := f.RawQuery(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", raw.Database())

	q, err := f.Quick(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", q.Database())
}

func Test_RawQuery_ShouldNotRecordDefault(t *testing.T) {
	f, ff := newFakeFacade(t)
	ctx := context.Background()

	r1, err := f.RawQuery(ctx, nil, "reports")
	require.NoError(t, err)
	r2, err := f.RawQuery(ctx, nil, "reports")
	require.NoError(t, err)

	assert.NotSame(t, r1, r2)
	assert.Equal(t, 2, ff.count("raw", "reports"))
	_, err = f.Config().DefaultDatabase()
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
}

func Test_QuickAdapter_ShouldCacheAndRecordDefault(t *testing.T) {
	f, ff := newFakeFacade(t)
	ctx := context.Background()

	q1, err := f.QuickAdapter(ctx, nil, "cache")
	require.NoError(t, err)
	q2, err := f.QuickAdapter(ctx, nil, "cache")
	require.NoError(t, err)
	other, err := f.QuickAdapter(ctx, nil, "other")
	require.NoError(t, err)

	assert.Same(t, q1, q2)
	assert.NotSame(t, q1, other)
	assert.Equal(t, 1, ff.count("quick", "cache"))

	name, err := f.Config().DefaultDatabase()
	require.NoError(t, err)
	assert.Equal(t, "cache", name)

	q3, err := f.Quick(ctx, nil)
	require.NoError(t, err)
	assert.Same(t, q1, q3)
}

func Test_QuickAdapter_ShouldConstructOnceForConcurrentCallers(t *testing.T) {
	f, ff := newFakeFacade(t)
	ff.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	results := make([]persistence.SQLAdapter, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := f.QuickAdapter(context.Background(), nil, "cache")
			assert.NoError(t, err)
			results[i] = a
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ff.count("quick", "cache"))
	assert.Same(t, results[0], results[1])
}

func Test_QuickAdapter_ShouldRetryAfterConstructionFailure(t *testing.T) {
	f, ff := newFakeFacade(t)
	ctx := context.Background()
	boom := errors.New("cannot open C")

	ff.setFail("C", boom)
	_, err := f.QuickAdapter(ctx, nil, "C")
	assert.Same(t, boom, err)
	assert.Zero(t, f.Registry().Len())
	_, err = f.Config().DefaultDatabase()
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)

	ff.setFail("C", nil)
	a, err := f.QuickAdapter(ctx, nil, "C")
	require.NoError(t, err)
	assert.Equal(t, "C", a.Database())
	assert.Equal(t, 2, ff.count("quick", "C"))
}

func Test_SQLAdapter_ShouldNotRecordDefaultOnFailure(t *testing.T) {
	f, ff := newFakeFacade(t)
	ctx := context.Background()
	boom := errors.New("cannot open")

	ff.setFail("broken", boom)
	_, err := f.SQLAdapter(ctx, nil, "broken")
	assert.Same(t, boom, err)

	_, err = f.SQLAdapter(ctx, nil, "orders")
	require.NoError(t, err)
	name, err := f.Config().DefaultDatabase()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)
}

func Test_ExplicitEmptyName_ShouldBeUsedAsIs(t *testing.T) {
	f, ff := newFakeFacade(t)

	a, err := f.SQLAdapter(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "", a.Database())
	assert.Equal(t, 1, ff.count("sql", ""))

	name, err := f.Config().DefaultDatabase()
	require.NoError(t, err)
	assert.Equal(t, "", name)
}

func Test_RegisterDatabase_ShouldSeedDefault(t *testing.T) {
	cfg := persistence.NewConfig()
	cfg.RegisterDatabase("main")
	f := persistence.New(persistence.WithConfig(cfg), persistence.WithFactory(newFakeFactory()))

	a, err := f.SQLAdapter(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "main", a.Database())
}

func Test_PreferenceAdapter_ShouldUseDefaultPreferencesFile(t *testing.T) {
	f, ff := newFakeFacade(t)
	f.Config().DefaultPreferences = "app"
	ctx := context.Background()

	p, err := f.PreferenceAdapter(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "app", p.File())

	p, err = f.PreferenceAdapter(ctx, nil, "ui")
	require.NoError(t, err)
	assert.Equal(t, "ui", p.File())

	assert.Equal(t, 1, ff.count("prefs", "app"))
	_, err = f.Config().DefaultDatabase()
	assert.ErrorIs(t, err, persistence.ErrNoDefaultDatabase)
}

func Test_Facade_ShouldIgnorePanickingLogger(t *testing.T) {
	f := persistence.New(persistence.WithFactory(newFakeFactory()), persistence.WithLogger(panicLogger{}))
	ctx := context.Background()

	a, err := f.SQLAdapter(ctx, nil, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", a.Database())

	q, err := f.Quick(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "orders", q.Database())
	assert.NoError(t, f.Close())
}

func Test_Facade_ShouldShareRegistryAcrossFacades(t *testing.T) {
	r := persistence.NewQuickRegistry(nil)
	f1 := persistence.New(persistence.WithRegistry(r), persistence.WithFactory(newFakeFactory()))
	f2 := persistence.New(persistence.WithRegistry(r), persistence.WithFactory(newFakeFactory()))
	ctx := context.Background()

	a1, err := f1.QuickAdapter(ctx, nil, "shared")
	require.NoError(t, err)
	a2, err := f2.QuickAdapter(ctx, nil, "shared")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
}

func Test_Facade_ShouldCloseQuickAdaptersOnClose(t *testing.T) {
	f, _ := newFakeFacade(t)
	ctx := context.Background()

	a, err := f.QuickAdapter(ctx, (*storage.Source)(nil), "cache")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.EqualValues(t, 1, a.(*fakeAdapter).closed.Load())
	assert.Zero(t, f.Registry().Len())
}
