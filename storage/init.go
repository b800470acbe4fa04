package storage

import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	RegisterAdapter(isSQLXDB, newSQLXAdapter)
	RegisterAdapter(isSQLDB, newSQLAdapter)
	RegisterAdapter(isMongoDB, newMongoAdapter)
	RegisterAdapter(isRedisClient, newRedisAdapter)

	// drivers
	RegisterDriver(DialectSQLite, newSQLDriver(DialectSQLite))
	RegisterDriver(DialectPostgres, newSQLDriver(DialectPostgres))
	RegisterDriver(DialectMySQL, newSQLDriver(DialectMySQL))
	RegisterDriver(DialectMongo, newMongoDriver)
	RegisterDriver(DialectRedis, newRedisDriver)
}
