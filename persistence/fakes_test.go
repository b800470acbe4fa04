package persistence_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"persistgo/persistence"
	"persistgo/storage"
)

// fakeAdapter satisfies the adapter interfaces; only the methods the facade
// itself touches are implemented.
type fakeAdapter struct {
	persistence.SQLAdapter
	name   string
	closed atomic.Int32
}

func (a *fakeAdapter) Database() string { return a.name }

func (a *fakeAdapter) Close() error {
	a.closed.Add(1)
	return nil
}

type fakeRaw struct {
	persistence.RawQuery
	name string
}

func (r *fakeRaw) Database() string { return r.name }

type fakePrefs struct {
	persistence.PreferencesAdapter
	file string
}

func (p *fakePrefs) File() string { return p.file }

type fakeFactory struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	delay time.Duration
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{calls: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeFactory) record(kind, name string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind+":"+name]++
	return f.fail[name]
}

func (f *fakeFactory) count(kind, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind+":"+name]
}

func (f *fakeFactory) setFail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, name)
		return
	}
	f.fail[name] = err
}

func (f *fakeFactory) NewSQLAdapter(_ context.Context, _ *storage.Source, name string) (persistence.SQLAdapter, error) {
	if err := f.record("sql", name); err != nil {
		return nil, err
	}
	return &fakeAdapter{name: name}, nil
}

func (f *fakeFactory) NewRawQuery(_ context.Context, _ *storage.Source, name string) (persistence.RawQuery, error) {
	if err := f.record("raw", name); err != nil {
		return nil, err
	}
	return &fakeRaw{name: name}, nil
}

func (f *fakeFactory) NewPreferences(_ context.Context, _ *storage.Source, file string) (persistence.PreferencesAdapter, error) {
	if err := f.record("prefs", file); err != nil {
		return nil, err
	}
	return &fakePrefs{file: file}, nil
}

func (f *fakeFactory) NewQuickAdapter(_ context.Context, _ *storage.Source, name string) (persistence.SQLAdapter, error) {
	if err := f.record("quick", name); err != nil {
		return nil, err
	}
	return &fakeAdapter{name: name}, nil
}

type panicLogger struct{}

func (panicLogger) Debug(string, ...any) { panic("logger down") }
func (panicLogger) Info(string, ...any)  { panic("logger down") }
func (panicLogger) Warn(string, ...any)  { panic("logger down") }
func (panicLogger) Error(string, ...any) { panic("logger down") }
