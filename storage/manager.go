package storage

import (
	"context"
	"errors"
	"fmt"
)

// Manager owns one connection together with the driver resolved for it.
type Manager struct {
	adapter Adapter
	driver  Driver
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Start(conn any) error {
	if conn == nil {
		return nil
	}
	a, err := RegistryAdapter(conn)
	if err != nil {
		return err
	}
	d, err := RegistryDriver(a)
	if err != nil {
		return err
	}
	m.adapter = a
	m.driver = d
	return nil
}

func (m *Manager) Adapter() Adapter { return m.adapter }
func (m *Manager) Driver() Driver   { return m.driver }
func (m *Manager) Dialect() string {
	if m.adapter == nil {
		return ""
	}
	return m.adapter.Dialect()
}

func (m *Manager) Build(ctx context.Context) error {
	if m.driver == nil {
		return nil
	}
	return m.driver.Migrate(ctx)
}

// Objects returns the object repository, or ErrUnsupported when the backend has none.
func (m *Manager) Objects() (ObjectRepo, error) {
	if m.driver == nil {
		return nil, ErrNotStarted
	}
	r := m.driver.Object()
	if r == nil {
		return nil, fmt.Errorf("%w: objects on %s", ErrUnsupported, m.Dialect())
	}
	return r, nil
}

// Preferences returns the preference repository, or ErrUnsupported when the backend has none.
func (m *Manager) Preferences() (PreferenceRepo, error) {
	if m.driver == nil {
		return nil, ErrNotStarted
	}
	r := m.driver.Preference()
	if r == nil {
		return nil, fmt.Errorf("%w: preferences on %s", ErrUnsupported, m.Dialect())
	}
	return r, nil
}

// Close releases the underlying connection. Safe to call more than once.
func (m *Manager) Close() error {
	if m.adapter == nil {
		return nil
	}
	a := m.adapter
	m.adapter = nil
	m.driver = nil
	return a.Close()
}

var (
	ErrNoAdapter      = errors.New("no adapter registered for connection type")
	ErrNoDriver       = errors.New("no driver registered for dialect")
	ErrNotStarted     = errors.New("storage manager not started")
	ErrUnsupported    = errors.New("operation not supported by backend")
	ErrUnknownDialect = errors.New("unknown dialect")
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)
