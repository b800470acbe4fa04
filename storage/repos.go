package storage

import (
	"context"
	"strings"
	"time"
)

const (
	tableObject        = "persist_object"
	tablePreference    = "persist_preference"
	tableSchemaVersion = "persist_schema_version"

	colID          = "id"
	colUUID        = "uuid"
	colKind        = "kind"
	colObjectKey   = "object_key"
	colBody        = "body"
	colFile        = "file"
	colPrefKey     = "pref_key"
	colValue       = "value"
	colDateCreated = "date_created"
	colDateUpdated = "date_updated"
)

func decodeAnyTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseTimeString(x)
	case []byte:
		return parseTimeString(string(x))
	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Common layouts:
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00", // modernc sqlite
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05", // SQLite datetime('now'), MySQL DATETIME
		"2006-01-02 15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Repos gives access to the repositories a driver supports. A nil repo
// means the backend cannot serve that kind of data.
type Repos interface {
	Object() ObjectRepo
	Preference() PreferenceRepo
}

// ObjectRecord is one stored object document.
type ObjectRecord struct {
	Kind        string
	Key         string
	Body        []byte
	DateCreated time.Time
	DateUpdated time.Time
}

// ObjectRepo stores opaque documents partitioned by kind and keyed by a
// caller-chosen key.
type ObjectRepo interface {
	// Insert fails with ErrDuplicate when (kind, key) exists.
	Insert(ctx context.Context, kind, key string, body []byte) error
	// Put inserts or replaces the record.
	Put(ctx context.Context, kind, key string, body []byte) error
	// Update fails with ErrNotFound when (kind, key) does not exist.
	Update(ctx context.Context, kind, key string, body []byte) error
	Get(ctx context.Context, kind, key string) (ObjectRecord, error)
	// List returns records in insertion order. limit <= 0 means no limit.
	List(ctx context.Context, kind string, limit, offset int) ([]ObjectRecord, error)
	Count(ctx context.Context, kind string) (int64, error)
	Delete(ctx context.Context, kind, key string) (bool, error)
	DeleteAll(ctx context.Context, kind string) (int64, error)
}

// PreferenceRepo is a key/value store namespaced by preference file.
type PreferenceRepo interface {
	Get(ctx context.Context, file, key string) (string, error)
	Set(ctx context.Context, file, key, value string) error
	All(ctx context.Context, file string) (map[string]string, error)
	Delete(ctx context.Context, file, key string) error
	Clear(ctx context.Context, file string) error
}
