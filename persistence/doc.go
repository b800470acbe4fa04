// Package persistence is the access point for persistgo adapters.
//
// A Facade turns a storage.Source and an optional logical database name into
// one of three adapters:
//
//   - SQLAdapter stores Go values as JSON documents partitioned by kind.
//   - RawQuery runs SQL text directly.
//   - PreferencesAdapter reads and writes a named key/value preference file.
//
// SQLAdapter, RawQuery and PreferencesAdapter are built fresh on every call
// and owned by the caller. Quick adapters are SQLAdapters cached in a
// QuickRegistry, one per database name, and shared for the life of the
// registry.
//
// When the name is omitted the Facade uses the default database recorded in
// its Config. The first successful SQLAdapter or QuickAdapter call sets it,
// and later calls never change it. A default-scoped call made before that
// fails with ErrNoDefaultDatabase.
//
//	f := persistence.New(persistence.WithLogger(slog.Default()))
//	src := &storage.Source{Dir: "/var/lib/app"}
//
//	orders, err := f.SQLAdapter(ctx, src, "orders")
//	...
//	defer orders.Close()
//	key, err := orders.Store(ctx, "", Order{ID: 1})
package persistence
