package persistence

import (
	"errors"

	"persistgo/storage"
)

var (
	// ErrNoDefaultDatabase is returned by default-scoped calls made before any
	// database has been opened or registered.
	ErrNoDefaultDatabase = errors.New("no default database")
	ErrUnnamedKind       = errors.New("object type has no name")
	ErrNotPointer        = errors.New("destination must be a non-nil pointer")
	ErrNotSlice          = errors.New("destination must point to a slice")
	ErrNotStruct         = errors.New("value must be a struct or pointer to struct")
	ErrNoFactory         = errors.New("no quick adapter factory")

	ErrNotFound    = storage.ErrNotFound
	ErrDuplicate   = storage.ErrDuplicate
	ErrUnsupported = storage.ErrUnsupported
)
