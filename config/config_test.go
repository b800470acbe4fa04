package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persistgo/config"
	"persistgo/storage"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func Test_Load_ShouldReturnDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	s, err := config.Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), s)
}

func Test_Load_ShouldFailForMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := config.Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_WriteThenLoad_ShouldRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "persistgo.yaml")

	want := config.Defaults()
	want.Storage.Dialect = storage.DialectPostgres
	want.Storage.DSN = "postgres://localhost/{name}"
	want.Storage.MaxOpenConns = 8
	want.Storage.ConnMaxLifetime = 5 * time.Minute
	want.Preferences.Backend = storage.PreferencesRedis
	want.Preferences.RedisAddr = "localhost:6379"
	want.Preferences.RedisDB = 2
	want.Log.Level = "debug"

	require.NoError(t, config.Write(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := config.Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func Test_Load_ShouldPreferEnvOverFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "persistgo.yaml")
	s := config.Defaults()
	s.Storage.Dir = "/from/file"
	require.NoError(t, config.Write(path, s))

	t.Setenv("PERSISTGO_STORAGE_DIR", "/from/env")
	t.Setenv("PERSISTGO_LOG_LEVEL", "warn")

	got, err := config.Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", got.Storage.Dir)
	assert.Equal(t, "warn", got.Log.Level)
}

func Test_Load_ShouldPreferChangedFlags(t *testing.T) {
	isolate(t)
	t.Setenv("PERSISTGO_STORAGE_DIR", "/from/env")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("dir", "", "")
	cmd.Flags().String("dialect", "", "")
	require.NoError(t, cmd.Flags().Set("dir", "/from/flag"))

	got, err := config.Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", got.Storage.Dir)
	assert.Equal(t, storage.DialectSQLite, got.Storage.Dialect)
}

func Test_Settings_ShouldBuildSource(t *testing.T) {
	s := config.Defaults()
	s.Storage.Dir = "/data"
	s.Preferences.Backend = storage.PreferencesMongo
	s.Preferences.MongoURI = "mongodb://localhost:27017"

	src := s.Source()
	assert.Equal(t, "/data", src.Dir)
	assert.Equal(t, storage.DialectSQLite, src.Dialect)
	assert.Equal(t, storage.PreferencesMongo, src.Preferences.Backend)
	assert.NoError(t, src.Validate())
}

func Test_Settings_ShouldParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := config.Settings{Log: config.LogSettings{Level: tt.in}}
			got, err := s.Level()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
