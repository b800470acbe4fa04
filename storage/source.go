package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PreferencesSQL   = "sql"
	PreferencesMongo = "mongodb"
	PreferencesRedis = "redis"

	// DefaultPreferencesDatabase is the SQL database holding preference files
	// when PreferenceSource.Database is empty.
	DefaultPreferencesDatabase = "preferences"

	// NamePlaceholder is replaced by the logical database name in Source.DSN.
	NamePlaceholder = "{name}"

	mongoNameInvalidChars = `/\. "$`
)

var (
	ErrNoDSN       = errors.New("dsn required for dialect")
	ErrInvalidName = errors.New("invalid database name")
	ErrNoBackend   = errors.New("unknown preferences backend")
)

// PreferenceSource selects where preference files live.
type PreferenceSource struct {
	Backend  string
	Database string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Source describes how logical database names map to real connections.
// The zero value opens in-memory sqlite databases. For the mongodb dialect
// DSN is the client URI and the logical name selects the database.
type Source struct {
	Dialect string
	// Driver overrides the database/sql driver name, e.g. "postgres" for lib/pq.
	Driver string
	// Dir holds sqlite files as <Dir>/<name>.db.
	Dir string
	// DSN is a connection string template; NamePlaceholder is substituted.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Preferences PreferenceSource
	Logger      Logger
}

func (s *Source) dialect() string {
	if s == nil || s.Dialect == "" {
		return DialectSQLite
	}
	return strings.ToLower(s.Dialect)
}

func (s *Source) driverName() string {
	if s.Driver != "" {
		return s.Driver
	}
	return driverNameForDialect(s.dialect())
}

func (s *Source) logger() Logger {
	if s == nil {
		return nil
	}
	return s.Logger
}

// Validate reports configuration errors without opening anything.
func (s *Source) Validate() error {
	if s == nil {
		return nil
	}
	switch s.dialect() {
	case DialectSQLite:
	case DialectPostgres, DialectMySQL, DialectMongo:
		if s.DSN == "" {
			return fmt.Errorf("%w: %s", ErrNoDSN, s.dialect())
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDialect, s.Dialect)
	}

	p := s.Preferences
	switch p.Backend {
	case "", PreferencesSQL:
	case PreferencesMongo:
		if p.MongoURI == "" {
			return fmt.Errorf("%w: mongodb backend needs a uri", ErrNoDSN)
		}
	case PreferencesRedis:
		if p.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend needs an address", ErrNoDSN)
		}
	default:
		return fmt.Errorf("%w: %s", ErrNoBackend, p.Backend)
	}
	return nil
}

// DataSource resolves the driver name and connection string for name.
func (s *Source) DataSource(name string) (string, string, error) {
	if s == nil {
		s = &Source{}
	}
	dialect := s.dialect()
	driver := s.driverName()

	if dialect == DialectMongo {
		if s.DSN == "" {
			return "", "", fmt.Errorf("%w: %s", ErrNoDSN, dialect)
		}
		if name == "" || strings.ContainsAny(name, mongoNameInvalidChars) {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		return driver, strings.ReplaceAll(s.DSN, NamePlaceholder, name), nil
	}

	if s.DSN != "" {
		dsn := strings.ReplaceAll(s.DSN, NamePlaceholder, name)
		if dialect == DialectMySQL && !strings.Contains(dsn, "parseTime") {
			dsn += mysqlParamSep(dsn) + "parseTime=true"
		}
		return driver, dsn, nil
	}

	switch dialect {
	case DialectSQLite:
		if s.Dir == "" {
			return driver, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil
		}
		if strings.ContainsAny(name, `/\`) || name == ".." {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		path := filepath.Join(s.Dir, name+".db")
		return driver, fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_txlock=immediate", path), nil
	case DialectPostgres, DialectMySQL:
		return "", "", fmt.Errorf("%w: %s", ErrNoDSN, dialect)
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
	}
}

// InMemory reports whether name resolves to an in-memory database. Such a
// database is dropped when its last connection closes.
func (s *Source) InMemory(name string) bool {
	_, dsn, err := s.DataSource(name)
	if err != nil {
		return false
	}
	return strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, ":memory:")
}

func mysqlParamSep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

// Open connects to the logical database name and applies migrations.
func (s *Source) Open(ctx context.Context, name string) (*Manager, error) {
	driver, dsn, err := s.DataSource(name)
	if err != nil {
		return nil, err
	}
	if s.dialect() == DialectMongo {
		return s.openMongo(ctx, name, dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	s.configurePool(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logWarn(s.logger(), logMsgOpenFailed, logAttrName, name, logAttrDriver, driver, logAttrError, err)
		return nil, err
	}

	m, err := s.start(ctx, db)
	if err != nil {
		_ = db.Close()
		logWarn(s.logger(), logMsgOpenFailed, logAttrName, name, logAttrDriver, driver, logAttrError, err)
		return nil, err
	}
	logDebug(s.logger(), logMsgOpened, logAttrName, name, logAttrDialect, m.Dialect(), logAttrDriver, driver)
	return m, nil
}

func (s *Source) openMongo(ctx context.Context, name, uri string) (*Manager, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		logWarn(s.logger(), logMsgOpenFailed, logAttrName, name, logAttrDriver, DialectMongo, logAttrError, err)
		return nil, err
	}
	m, err := s.start(ctx, client.Database(name))
	if err != nil {
		_ = client.Disconnect(context.Background())
		logWarn(s.logger(), logMsgOpenFailed, logAttrName, name, logAttrDriver, DialectMongo, logAttrError, err)
		return nil, err
	}
	logDebug(s.logger(), logMsgOpened, logAttrName, name, logAttrDialect, DialectMongo)
	return m, nil
}

func (s *Source) configurePool(db *sqlx.DB) {
	if s == nil {
		db.SetMaxOpenConns(1)
		return
	}
	switch {
	case s.MaxOpenConns > 0:
		db.SetMaxOpenConns(s.MaxOpenConns)
	case s.dialect() == DialectSQLite:
		// One writer at a time avoids SQLITE_BUSY on file databases.
		db.SetMaxOpenConns(1)
	}
	if s.MaxIdleConns > 0 {
		db.SetMaxIdleConns(s.MaxIdleConns)
	}
	if s.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.ConnMaxLifetime)
	}
}

func (s *Source) start(ctx context.Context, conn any) (*Manager, error) {
	m := NewManager()
	if err := m.Start(conn); err != nil {
		return nil, err
	}
	if err := m.Build(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenPreferences connects to the configured preference backend.
func (s *Source) OpenPreferences(ctx context.Context) (*Manager, error) {
	var p PreferenceSource
	if s != nil {
		p = s.Preferences
	}

	switch p.Backend {
	case "", PreferencesSQL:
		name := p.Database
		if name == "" {
			name = DefaultPreferencesDatabase
		}
		return s.Open(ctx, name)

	case PreferencesMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.MongoURI))
		if err != nil {
			return nil, err
		}
		dbName := p.MongoDatabase
		if dbName == "" {
			dbName = DefaultPreferencesDatabase
		}
		m, err := s.start(ctx, client.Database(dbName))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logDebug(s.logger(), logMsgPrefsOpened, logAttrBackend, p.Backend, logAttrName, dbName)
		return m, nil

	case PreferencesRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     p.RedisAddr,
			Password: p.RedisPassword,
			DB:       p.RedisDB,
		})
		m, err := s.start(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logDebug(s.logger(), logMsgPrefsOpened, logAttrBackend, p.Backend, logAttrName, p.RedisAddr)
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, p.Backend)
	}
}
