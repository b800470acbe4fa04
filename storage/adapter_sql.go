package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectMongo    = "mongodb"
	DialectRedis    = "redis"
)

type SQLAdapter struct {
	DB      *sqlx.DB
	dialect string
}

func (a *SQLAdapter) Dialect() string { return a.dialect }
func (a *SQLAdapter) Close() error    { return a.DB.Close() }

func isSQLXDB(conn any) bool {
	_, ok := conn.(*sqlx.DB)
	return ok
}

func isSQLDB(conn any) bool {
	_, ok := conn.(*sql.DB)
	return ok
}

func newSQLXAdapter(conn any) (Adapter, error) {
	db := conn.(*sqlx.DB)
	dialect := dialectForDriverName(db.DriverName())
	if dialect == "" {
		dialect = detectDialect(db.DB)
	}
	return &SQLAdapter{DB: db, dialect: dialect}, nil
}

func newSQLAdapter(conn any) (Adapter, error) {
	db := conn.(*sql.DB)
	dialect := detectDialect(db)
	return &SQLAdapter{DB: sqlx.NewDb(db, driverNameForDialect(dialect)), dialect: dialect}, nil
}

// detectDialect guesses the dialect from the driver's Go type.
func detectDialect(db *sql.DB) string {
	name := strings.ToLower(fmt.Sprintf("%T", db.Driver()))
	dialect := DialectPostgres
	switch {
	case strings.Contains(name, "sqlite"):
		dialect = DialectSQLite
	case strings.Contains(name, "mysql"):
		dialect = DialectMySQL
	case strings.Contains(name, "pgx"), strings.Contains(name, "pq."), strings.Contains(name, "stdlib"):
		dialect = DialectPostgres
	}
	return dialect
}

func dialectForDriverName(driver string) string {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "pgx", "postgres", "postgresql":
		return DialectPostgres
	case "mysql":
		return DialectMySQL
	default:
		return ""
	}
}

func driverNameForDialect(dialect string) string {
	switch dialect {
	case DialectPostgres:
		return "pgx"
	default:
		return dialect
	}
}
