package persistence

import (
	"os"
	"sync"
)

// DefaultPreferencesFile is used when PERSIST_DEFAULT_PREFERENCES is unset.
const DefaultPreferencesFile = "default"

// Config holds the default database name. It moves from unset to set once
// and is read many times after that; Reset returns it to unset.
type Config struct {
	mu sync.RWMutex

	defaultDatabase string
	hasDefault      bool

	// DefaultPreferences names the preference file used when none is given.
	DefaultPreferences string
}

func NewConfig() *Config {
	prefs := os.Getenv("PERSIST_DEFAULT_PREFERENCES")
	if prefs == "" {
		prefs = DefaultPreferencesFile
	}
	return &Config{DefaultPreferences: prefs}
}

// RecordFirstDatabase sets the default database when it is unset and reports
// whether this call set it. Empty names are accepted.
func (c *Config) RecordFirstDatabase(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasDefault {
		return false
	}
	c.defaultDatabase = name
	c.hasDefault = true
	return true
}

// RegisterDatabase declares a database up front. Like every opening call it
// only sets the default when none is recorded.
func (c *Config) RegisterDatabase(name string) {
	c.RecordFirstDatabase(name)
}

func (c *Config) DefaultDatabase() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasDefault {
		return "", ErrNoDefaultDatabase
	}
	return c.defaultDatabase, nil
}

func (c *Config) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultDatabase = ""
	c.hasDefault = false
}
