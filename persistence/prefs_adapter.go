package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"persistgo/storage"
)

// PreferencesAdapter reads and writes one named preference file. Values are
// stored as JSON. Callers must Close it.
type PreferencesAdapter interface {
	// Retrieve fills the struct dst points to. Fields are keyed by their
	// `pref` tag or field name; `pref:"-"` skips a field and keys missing
	// from the file leave the field untouched.
	Retrieve(ctx context.Context, dst any) error
	// Persist writes every keyed field of src.
	Persist(ctx context.Context, src any) error
	// Get fails with ErrNotFound when key is absent.
	Get(ctx context.Context, key string, dst any) error
	Put(ctx context.Context, key string, v any) error
	Remove(ctx context.Context, key string) error
	// Keys returns the keys of the file in sorted order.
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	File() string
	Close() error
}

const prefTag = "pref"

type prefsAdapter struct {
	file    string
	manager *storage.Manager
	repo    storage.PreferenceRepo
}

func newPrefsAdapter(file string, m *storage.Manager) (*prefsAdapter, error) {
	repo, err := m.Preferences()
	if err != nil {
		return nil, err
	}
	return &prefsAdapter{file: file, manager: m, repo: repo}, nil
}

func (p *prefsAdapter) File() string { return p.file }

func (p *prefsAdapter) Close() error {
	if p.manager == nil {
		return nil
	}
	return p.manager.Close()
}

func (p *prefsAdapter) Get(ctx context.Context, key string, dst any) error {
	if err := checkPointer(dst); err != nil {
		return err
	}
	raw, err := p.repo.Get(ctx, p.file, key)
	if err != nil {
		return err
	}
	return json.UnmarshalFromString(raw, dst)
}

func (p *prefsAdapter) Put(ctx context.Context, key string, v any) error {
	raw, err := json.MarshalToString(v)
	if err != nil {
		return fmt.Errorf("encode preference %q: %w", key, err)
	}
	return p.repo.Set(ctx, p.file, key, raw)
}

func (p *prefsAdapter) Remove(ctx context.Context, key string) error {
	return p.repo.Delete(ctx, p.file, key)
}

func (p *prefsAdapter) Clear(ctx context.Context) error {
	return p.repo.Clear(ctx, p.file)
}

func (p *prefsAdapter) Keys(ctx context.Context) ([]string, error) {
	all, err := p.repo.All(ctx, p.file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *prefsAdapter) Retrieve(ctx context.Context, dst any) error {
	if err := checkPointer(dst); err != nil {
		return err
	}
	v := reflect.ValueOf(dst).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrNotStruct, dst)
	}
	all, err := p.repo.All(ctx, p.file)
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range prefFields(v.Type()) {
		raw, ok := all[f.key]
		if !ok {
			continue
		}
		field := v.FieldByIndex(f.index)
		if err := json.UnmarshalFromString(raw, field.Addr().Interface()); err != nil {
			errs = append(errs, fmt.Errorf("decode preference %q: %w", f.key, err))
		}
	}
	return errors.Join(errs...)
}

func (p *prefsAdapter) Persist(ctx context.Context, src any) error {
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fmt.Errorf("%w: got nil %T", ErrNotStruct, src)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrNotStruct, src)
	}
	for _, f := range prefFields(v.Type()) {
		if err := p.Put(ctx, f.key, v.FieldByIndex(f.index).Interface()); err != nil {
			return err
		}
	}
	return nil
}

type prefField struct {
	key   string
	index []int
}

func prefFields(t reflect.Type) []prefField {
	fields := make([]prefField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		key := sf.Name
		if tag, ok := sf.Tag.Lookup(prefTag); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				key = tag
			}
		}
		fields = append(fields, prefField{key: key, index: sf.Index})
	}
	return fields
}
