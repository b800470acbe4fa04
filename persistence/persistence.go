package persistence

import (
	"context"

	"persistgo/storage"
)

// Facade hands out adapters for logical database names. Calls that omit the
// name use the default database: the first one successfully opened through
// SQLAdapter or QuickAdapter, or declared with Config.RegisterDatabase.
type Facade struct {
	config   *Config
	registry *QuickRegistry
	factory  AdapterFactory
	logger   Logger
}

type Option func(*Facade)

func New(opts ...Option) *Facade {
	f := &Facade{}
	for _, opt := range opts {
		opt(f)
	}

	// Defaults
	if f.config == nil {
		f.config = NewConfig()
	}
	if f.registry == nil {
		f.registry = NewQuickRegistry(nil)
	}
	if f.factory == nil {
		f.factory = StorageFactory{}
	}
	if f.registry.logger == nil {
		f.registry.logger = f.logger
	}
	return f
}

func WithConfig(c *Config) Option {
	return func(f *Facade) { f.config = c }
}

// WithRegistry shares a quick adapter registry between facades.
func WithRegistry(r *QuickRegistry) Option {
	return func(f *Facade) { f.registry = r }
}

func WithLogger(l Logger) Option {
	return func(f *Facade) { f.logger = l }
}

func WithFactory(af AdapterFactory) Option {
	return func(f *Facade) { f.factory = af }
}

func (f *Facade) Config() *Config          { return f.config }
func (f *Facade) Registry() *QuickRegistry { return f.registry }

// resolveDatabase picks the first explicit name, even an empty one, and
// falls back to the default database otherwise.
func (f *Facade) resolveDatabase(name []string) (string, error) {
	if len(name) > 0 {
		return name[0], nil
	}
	return f.config.DefaultDatabase()
}

func (f *Facade) recordDefault(tag, name string) {
	if f.config.RecordFirstDatabase(name) {
		logDebug(f.logger, logMsgDefaultRecorded, logAttrTag, tag, logAttrDatabase, name)
	}
}

// SQLAdapter returns a new object adapter for the named or default database.
func (f *Facade) SQLAdapter(ctx context.Context, src *storage.Source, name ...string) (SQLAdapter, error) {
	db, err := f.resolveDatabase(name)
	if err != nil {
		return nil, err
	}
	logDebug(f.logger, logMsgResolve, logAttrTag, tagSQLAdapter, logAttrDatabase, db)

	a, err := f.factory.NewSQLAdapter(ctx, src, db)
	if err != nil {
		return nil, err
	}
	f.recordDefault(tagSQLAdapter, db)
	return a, nil
}

// RawQuery returns a new raw query adapter. It never records the default.
func (f *Facade) RawQuery(ctx context.Context, src *storage.Source, name ...string) (RawQuery, error) {
	db, err := f.resolveDatabase(name)
	if err != nil {
		return nil, err
	}
	logDebug(f.logger, logMsgResolve, logAttrTag, tagRawQuery, logAttrDatabase, db)
	return f.factory.NewRawQuery(ctx, src, db)
}

// QuickAdapter returns the shared quick adapter for the named or default
// database, building it on first use. Adapters are cached by name only: the
// instance stays bound to the Source it was built with, and later calls
// passing a different src for the same name get that instance back.
func (f *Facade) QuickAdapter(ctx context.Context, src *storage.Source, name ...string) (SQLAdapter, error) {
	db, err := f.resolveDatabase(name)
	if err != nil {
		return nil, err
	}
	logDebug(f.logger, logMsgResolve, logAttrTag, tagQuickAdapter, logAttrDatabase, db)

	a, err := f.registry.GetOrCreate(ctx, db, func(ctx context.Context, n string) (SQLAdapter, error) {
		return f.factory.NewQuickAdapter(ctx, src, n)
	})
	if err != nil {
		return nil, err
	}
	f.recordDefault(tagQuickAdapter, db)
	return a, nil
}

// Quick is QuickAdapter for the default database.
func (f *Facade) Quick(ctx context.Context, src *storage.Source) (SQLAdapter, error) {
	return f.QuickAdapter(ctx, src)
}

// PreferenceAdapter returns a new adapter for the named preference file, or
// for Config.DefaultPreferences when name is omitted.
func (f *Facade) PreferenceAdapter(ctx context.Context, src *storage.Source, name ...string) (PreferencesAdapter, error) {
	file := f.config.DefaultPreferences
	if len(name) > 0 {
		file = name[0]
	}
	logDebug(f.logger, logMsgResolve, logAttrTag, tagPreferences, logAttrDatabase, file)
	return f.factory.NewPreferences(ctx, src, file)
}

// Close closes every cached quick adapter.
func (f *Facade) Close() error {
	return f.registry.Close()
}

// QuickPref reads a T from the named or default preference file.
func QuickPref[T any](ctx context.Context, f *Facade, src *storage.Source, name ...string) (T, error) {
	var v T
	p, err := f.PreferenceAdapter(ctx, src, name...)
	if err != nil {
		return v, err
	}
	defer func() { _ = p.Close() }()

	if err := p.Retrieve(ctx, &v); err != nil {
		return v, err
	}
	return v, nil
}
