package persistence

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"persistgo/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLAdapter stores domain objects as JSON documents in a named SQL
// database, partitioned by kind. Callers own the adapter and must Close it.
type SQLAdapter interface {
	// Store inserts or replaces obj under key and returns the key used. An
	// empty key is replaced by a generated one.
	Store(ctx context.Context, key string, obj any) (string, error)
	// Insert fails with ErrDuplicate when key is taken.
	Insert(ctx context.Context, key string, obj any) error
	// Update fails with ErrNotFound when key is absent.
	Update(ctx context.Context, key string, obj any) error
	Find(ctx context.Context, key string, dst any) error
	// FindAll fills dst, a *[]T or *[]*T, in insertion order.
	FindAll(ctx context.Context, dst any) error
	// FindPage is FindAll restricted to limit records after skipping
	// offset. limit <= 0 means no limit.
	FindPage(ctx context.Context, dst any, offset, limit int) error
	// Stat reports the timestamps of the record stored under key.
	Stat(ctx context.Context, sample any, key string) (ObjectInfo, error)
	Count(ctx context.Context, sample any) (int64, error)
	Delete(ctx context.Context, sample any, key string) error
	Truncate(ctx context.Context, sample any) (int64, error)
	Database() string
	Close() error
}

// ObjectInfo describes a stored object without decoding it.
type ObjectInfo struct {
	Kind    string
	Key     string
	Size    int
	Created time.Time
	Updated time.Time
}

type sqlAdapter struct {
	name    string
	manager *storage.Manager
	objects storage.ObjectRepo
}

func newSQLAdapter(name string, m *storage.Manager) (*sqlAdapter, error) {
	objects, err := m.Objects()
	if err != nil {
		return nil, err
	}
	return &sqlAdapter{name: name, manager: m, objects: objects}, nil
}

func (a *sqlAdapter) Database() string { return a.name }

func (a *sqlAdapter) Close() error {
	if a.manager == nil {
		return nil
	}
	return a.manager.Close()
}

func (a *sqlAdapter) encode(obj any) (string, []byte, error) {
	kind, err := kindOf(obj)
	if err != nil {
		return "", nil, err
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return kind, body, nil
}

func (a *sqlAdapter) Store(ctx context.Context, key string, obj any) (string, error) {
	kind, body, err := a.encode(obj)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = uuid.NewString()
	}
	if err := a.objects.Put(ctx, kind, key, body); err != nil {
		return "", err
	}
	return key, nil
}

func (a *sqlAdapter) Insert(ctx context.Context, key string, obj any) error {
	kind, body, err := a.encode(obj)
	if err != nil {
		return err
	}
	return a.objects.Insert(ctx, kind, key, body)
}

func (a *sqlAdapter) Update(ctx context.Context, key string, obj any) error {
	kind, body, err := a.encode(obj)
	if err != nil {
		return err
	}
	return a.objects.Update(ctx, kind, key, body)
}

func (a *sqlAdapter) Find(ctx context.Context, key string, dst any) error {
	if err := checkPointer(dst); err != nil {
		return err
	}
	kind, err := kindOf(dst)
	if err != nil {
		return err
	}
	rec, err := a.objects.Get(ctx, kind, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(rec.Body, dst)
}

func (a *sqlAdapter) FindAll(ctx context.Context, dst any) error {
	return a.FindPage(ctx, dst, 0, 0)
}

func (a *sqlAdapter) FindPage(ctx context.Context, dst any, offset, limit int) error {
	if err := checkPointer(dst); err != nil {
		return err
	}
	slice := reflect.ValueOf(dst).Elem()
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("%w: got %T", ErrNotSlice, dst)
	}
	kind, err := kindOfType(slice.Type())
	if err != nil {
		return err
	}
	recs, err := a.objects.List(ctx, kind, limit, offset)
	if err != nil {
		return err
	}

	elem := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(recs))
	for _, rec := range recs {
		var item reflect.Value
		if elem.Kind() == reflect.Pointer {
			item = reflect.New(elem.Elem())
		} else {
			item = reflect.New(elem)
		}
		if err := json.Unmarshal(rec.Body, item.Interface()); err != nil {
			return fmt.Errorf("decode %s/%s: %w", kind, rec.Key, err)
		}
		if elem.Kind() != reflect.Pointer {
			item = item.Elem()
		}
		out = reflect.Append(out, item)
	}
	slice.Set(out)
	return nil
}

func (a *sqlAdapter) Stat(ctx context.Context, sample any, key string) (ObjectInfo, error) {
	kind, err := kindOf(sample)
	if err != nil {
		return ObjectInfo{}, err
	}
	rec, err := a.objects.Get(ctx, kind, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Kind:    rec.Kind,
		Key:     rec.Key,
		Size:    len(rec.Body),
		Created: rec.DateCreated,
		Updated: rec.DateUpdated,
	}, nil
}

func (a *sqlAdapter) Count(ctx context.Context, sample any) (int64, error) {
	kind, err := kindOf(sample)
	if err != nil {
		return 0, err
	}
	return a.objects.Count(ctx, kind)
}

func (a *sqlAdapter) Delete(ctx context.Context, sample any, key string) error {
	kind, err := kindOf(sample)
	if err != nil {
		return err
	}
	deleted, err := a.objects.Delete(ctx, kind, key)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (a *sqlAdapter) Truncate(ctx context.Context, sample any) (int64, error) {
	kind, err := kindOf(sample)
	if err != nil {
		return 0, err
	}
	return a.objects.DeleteAll(ctx, kind)
}

func checkPointer(dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrNotPointer, dst)
	}
	return nil
}
