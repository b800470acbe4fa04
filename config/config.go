// Package config loads persistgo settings from defaults, a persistgo.yaml
// file, PERSISTGO_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"persistgo/storage"
)

const (
	fileName  = "persistgo"
	envPrefix = "PERSISTGO"
)

type Settings struct {
	Storage     StorageSettings    `mapstructure:"storage" yaml:"storage"`
	Preferences PreferenceSettings `mapstructure:"preferences" yaml:"preferences"`
	Log         LogSettings        `mapstructure:"log" yaml:"log"`
}

type StorageSettings struct {
	Dialect         string        `mapstructure:"dialect" yaml:"dialect"`
	Driver          string        `mapstructure:"driver" yaml:"driver,omitempty"`
	Dir             string        `mapstructure:"dir" yaml:"dir"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn,omitempty"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type PreferenceSettings struct {
	Backend       string `mapstructure:"backend" yaml:"backend"`
	Database      string `mapstructure:"database" yaml:"database"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri,omitempty"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database,omitempty"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Storage: StorageSettings{
			Dialect: storage.DialectSQLite,
			Dir:     ".",
		},
		Preferences: PreferenceSettings{
			Backend:  storage.PreferencesSQL,
			Database: storage.DefaultPreferencesDatabase,
		},
		Log: LogSettings{Level: "info"},
	}
}

func defaultsMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"storage.dialect":            d.Storage.Dialect,
		"storage.driver":             d.Storage.Driver,
		"storage.dir":                d.Storage.Dir,
		"storage.dsn":                d.Storage.DSN,
		"storage.max_open_conns":     d.Storage.MaxOpenConns,
		"storage.max_idle_conns":     d.Storage.MaxIdleConns,
		"storage.conn_max_lifetime":  d.Storage.ConnMaxLifetime,
		"preferences.backend":        d.Preferences.Backend,
		"preferences.database":       d.Preferences.Database,
		"preferences.mongo_uri":      d.Preferences.MongoURI,
		"preferences.mongo_database": d.Preferences.MongoDatabase,
		"preferences.redis_addr":     d.Preferences.RedisAddr,
		"preferences.redis_password": d.Preferences.RedisPassword,
		"preferences.redis_db":       d.Preferences.RedisDB,
		"log.level":                  d.Log.Level,
	}
}

// flagKeys maps command-line flag names to settings keys.
var flagKeys = map[string]string{
	"dialect":   "storage.dialect",
	"driver":    "storage.driver",
	"dir":       "storage.dir",
	"dsn":       "storage.dsn",
	"log-level": "log.level",
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, fileName, fileName+".yaml"), nil
}

func systemDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), fileName)
	}
	return "/etc/" + fileName
}

// Load reads settings. path, when not empty, names the file explicitly and
// must exist. cmd may be nil; otherwise its changed flags win.
func Load(cmd *cobra.Command, path string) (Settings, error) {
	var s Settings
	v := viper.New()

	for key, value := range defaultsMap() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	if userPath, err := DefaultPath(); err == nil {
		v.AddConfigPath(filepath.Dir(userPath))
	}
	v.AddConfigPath(systemDir())
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return s, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return s, err
				}
			}
		}
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("parse config: %w", err)
	}
	return s, nil
}

// Write stores s as YAML at path, creating parent directories. The file is
// private to the user since DSNs may carry passwords.
func Write(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Source converts the storage and preference settings.
func (s Settings) Source() *storage.Source {
	return &storage.Source{
		Dialect:         s.Storage.Dialect,
		Driver:          s.Storage.Driver,
		Dir:             s.Storage.Dir,
		DSN:             s.Storage.DSN,
		MaxOpenConns:    s.Storage.MaxOpenConns,
		MaxIdleConns:    s.Storage.MaxIdleConns,
		ConnMaxLifetime: s.Storage.ConnMaxLifetime,
		Preferences: storage.PreferenceSource{
			Backend:       s.Preferences.Backend,
			Database:      s.Preferences.Database,
			MongoURI:      s.Preferences.MongoURI,
			MongoDatabase: s.Preferences.MongoDatabase,
			RedisAddr:     s.Preferences.RedisAddr,
			RedisPassword: s.Preferences.RedisPassword,
			RedisDB:       s.Preferences.RedisDB,
		},
	}
}

// Level parses Log.Level; empty means info.
func (s Settings) Level() (slog.Level, error) {
	var l slog.Level
	if s.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}
