package persistence

import (
	"fmt"
	"reflect"
)

// Kinder lets a type choose the kind its objects are stored under. Without
// it the Go type name is used.
type Kinder interface {
	PersistenceKind() string
}

var kinderType = reflect.TypeOf((*Kinder)(nil)).Elem()

func kindOf(v any) (string, error) {
	if k, ok := v.(Kinder); ok {
		return k.PersistenceKind(), nil
	}
	if v == nil {
		return "", ErrUnnamedKind
	}
	return kindOfType(reflect.TypeOf(v))
}

// kindOfType strips pointers, slices and arrays before naming t.
func kindOfType(t reflect.Type) (string, error) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(kinderType) {
		return reflect.New(t).Interface().(Kinder).PersistenceKind(), nil
	}
	if t.Name() == "" {
		return "", fmt.Errorf("%w: %s", ErrUnnamedKind, t)
	}
	return t.Name(), nil
}
