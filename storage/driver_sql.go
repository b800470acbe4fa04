package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS persist_schema_version (num INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS persist_object (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			object_key TEXT NOT NULL,
			body TEXT NOT NULL,
			date_created TIMESTAMP NOT NULL,
			date_updated TIMESTAMP NOT NULL,
			UNIQUE (kind, object_key)
		)`,
		`CREATE TABLE IF NOT EXISTS persist_preference (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			pref_key TEXT NOT NULL,
			value TEXT NOT NULL,
			date_updated TIMESTAMP NOT NULL,
			UNIQUE (file, pref_key)
		)`,
	},
}

var postgresMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS persist_schema_version (num INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS persist_object (
			id BIGSERIAL PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			object_key TEXT NOT NULL,
			body TEXT NOT NULL,
			date_created TIMESTAMPTZ NOT NULL,
			date_updated TIMESTAMPTZ NOT NULL,
			UNIQUE (kind, object_key)
		)`,
		`CREATE TABLE IF NOT EXISTS persist_preference (
			id BIGSERIAL PRIMARY KEY,
			file TEXT NOT NULL,
			pref_key TEXT NOT NULL,
			value TEXT NOT NULL,
			date_updated TIMESTAMPTZ NOT NULL,
			UNIQUE (file, pref_key)
		)`,
	},
}

// MySQL cannot index TEXT without a prefix length, so key columns are VARCHAR(191).
var mysqlMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS persist_schema_version (num INT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS persist_object (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			uuid VARCHAR(36) NOT NULL UNIQUE,
			kind VARCHAR(191) NOT NULL,
			object_key VARCHAR(191) NOT NULL,
			body LONGTEXT NOT NULL,
			date_created DATETIME(6) NOT NULL,
			date_updated DATETIME(6) NOT NULL,
			UNIQUE KEY uq_persist_object_kind_key (kind, object_key)
		)`,
		`CREATE TABLE IF NOT EXISTS persist_preference (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			file VARCHAR(191) NOT NULL,
			pref_key VARCHAR(191) NOT NULL,
			value LONGTEXT NOT NULL,
			date_updated DATETIME(6) NOT NULL,
			UNIQUE KEY uq_persist_preference_file_key (file, pref_key)
		)`,
	},
}

const sqlSchemaVersion = 1

type SQLDriver struct {
	a       *SQLAdapter
	dialect string
	repos   *sqlRepos
}

func newSQLDriver(dialect string) driverFactory {
	return func(adapter Adapter) (Driver, error) {
		a, ok := adapter.(*SQLAdapter)
		if !ok {
			return nil, fmt.Errorf("sql driver expects *SQLAdapter, got %T", adapter)
		}
		return &SQLDriver{a: a, dialect: dialect}, nil
	}
}

func (d *SQLDriver) Dialect() string { return d.dialect }

func (d *SQLDriver) Migrate(ctx context.Context) error {
	if d.a == nil || d.a.DB == nil {
		return nil
	}

	var migrations map[int][]string
	switch d.dialect {
	case DialectSQLite:
		migrations = sqliteMigrations
	case DialectPostgres:
		migrations = postgresMigrations
	case DialectMySQL:
		migrations = mysqlMigrations
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDialect, d.dialect)
	}

	currentVersion := d.getSchemaVersion(ctx)
	if currentVersion >= sqlSchemaVersion {
		return nil
	}

	tx, err := d.a.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for v := currentVersion + 1; v <= sqlSchemaVersion; v++ {
		ops, ok := migrations[v]
		if !ok {
			continue
		}

		for _, op := range ops {
			if _, err := tx.ExecContext(ctx, op); err != nil {
				return fmt.Errorf("migration %d failed: %w", v, err)
			}
		}

		// Update schema version
		var updateSQL string
		if currentVersion == 0 {
			updateSQL = "INSERT INTO persist_schema_version (num) VALUES (?)"
		} else {
			updateSQL = "UPDATE persist_schema_version SET num = ?"
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(updateSQL), v); err != nil {
			return err
		}
		currentVersion = v
	}

	return tx.Commit()
}

func (d *SQLDriver) getSchemaVersion(ctx context.Context) int {
	var version sql.NullInt64
	err := d.a.DB.QueryRowxContext(ctx, "SELECT num FROM persist_schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) || !version.Valid {
		return 0
	}
	if err != nil {
		return 0
	}
	return int(version.Int64)
}

func (d *SQLDriver) db() *sqlx.DB { return d.a.DB }

type sqlRepos struct {
	object     ObjectRepo
	preference PreferenceRepo
}

func (d *SQLDriver) init() {
	if d.repos == nil {
		d.repos = &sqlRepos{
			object:     &sqlObjectRepo{db: d.db(), dialect: d.dialect},
			preference: &sqlPreferenceRepo{db: d.db(), dialect: d.dialect},
		}
	}
}

func (d *SQLDriver) Object() ObjectRepo {
	d.init()
	return d.repos.object
}

func (d *SQLDriver) Preference() PreferenceRepo {
	d.init()
	return d.repos.preference
}
