package storage

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func goquDialect(dialect string) goqu.DialectWrapper {
	switch dialect {
	case DialectSQLite:
		return goqu.Dialect("sqlite3")
	case DialectMySQL:
		return goqu.Dialect("mysql")
	default:
		return goqu.Dialect("postgres")
	}
}

// MapDBError maps constraint violations reported by the sqlite, postgres and
// mysql drivers to ErrDuplicate. Other errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func noRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// SQL object repo

type sqlObjectRepo struct {
	db      *sqlx.DB
	dialect string
}

func (r *sqlObjectRepo) builder() goqu.DialectWrapper { return goquDialect(r.dialect) }

func (r *sqlObjectRepo) Insert(ctx context.Context, kind, key string, body []byte) error {
	return MapDBError(r.insert(ctx, r.db, kind, key, body))
}

func (r *sqlObjectRepo) insert(ctx context.Context, ext sqlx.ExtContext, kind, key string, body []byte) error {
	now := time.Now().UTC()
	query, args, err := r.builder().
		Insert(tableObject).
		Rows(goqu.Record{
			colUUID:        uuid.New().String(),
			colKind:        kind,
			colObjectKey:   key,
			colBody:        string(body),
			colDateCreated: now,
			colDateUpdated: now,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = ext.ExecContext(ctx, query, args...)
	return err
}

func (r *sqlObjectRepo) update(ctx context.Context, ext sqlx.ExtContext, kind, key string, body []byte) (int64, error) {
	query, args, err := r.builder().
		Update(tableObject).
		Set(goqu.Record{
			colBody:        string(body),
			colDateUpdated: time.Now().UTC(),
		}).
		Where(goqu.Ex{colKind: kind, colObjectKey: key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqlObjectRepo) exists(ctx context.Context, ext sqlx.ExtContext, kind, key string) (bool, error) {
	query, args, err := r.builder().
		From(tableObject).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colKind: kind, colObjectKey: key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}
	var n int64
	if err := ext.QueryRowxContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sqlObjectRepo) Put(ctx context.Context, kind, key string, body []byte) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	found, err := r.exists(ctx, tx, kind, key)
	if err != nil {
		return err
	}
	if found {
		if _, err := r.update(ctx, tx, kind, key, body); err != nil {
			return err
		}
	} else if err := r.insert(ctx, tx, kind, key, body); err != nil {
		return MapDBError(err)
	}
	return tx.Commit()
}

func (r *sqlObjectRepo) Update(ctx context.Context, kind, key string, body []byte) error {
	n, err := r.update(ctx, r.db, kind, key, body)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// MySQL reports zero affected rows when nothing changed.
	found, err := r.exists(ctx, r.db, kind, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (r *sqlObjectRepo) selectRecords() *goqu.SelectDataset {
	return r.builder().
		From(tableObject).
		Select(colKind, colObjectKey, colBody, colDateCreated, colDateUpdated)
}

func scanObject(row interface{ Scan(dest ...any) error }) (ObjectRecord, error) {
	var rec ObjectRecord
	var created, updated any
	if err := row.Scan(&rec.Kind, &rec.Key, &rec.Body, &created, &updated); err != nil {
		return ObjectRecord{}, err
	}
	rec.DateCreated, _ = decodeAnyTime(created)
	rec.DateUpdated, _ = decodeAnyTime(updated)
	return rec, nil
}

func (r *sqlObjectRepo) Get(ctx context.Context, kind, key string) (ObjectRecord, error) {
	query, args, err := r.selectRecords().
		Where(goqu.Ex{colKind: kind, colObjectKey: key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return ObjectRecord{}, err
	}
	rec, err := scanObject(r.db.QueryRowxContext(ctx, query, args...))
	if noRows(err) {
		return ObjectRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *sqlObjectRepo) List(ctx context.Context, kind string, limit, offset int) ([]ObjectRecord, error) {
	ds := r.selectRecords().
		Where(goqu.Ex{colKind: kind}).
		Order(goqu.C(colID).Asc())
	if limit <= 0 && offset > 0 {
		// sqlite and mysql reject OFFSET without LIMIT.
		limit = math.MaxInt32
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ObjectRecord
	for rows.Next() {
		rec, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sqlObjectRepo) Count(ctx context.Context, kind string) (int64, error) {
	query, args, err := r.builder().
		From(tableObject).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colKind: kind}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRowxContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *sqlObjectRepo) Delete(ctx context.Context, kind, key string) (bool, error) {
	n, err := r.delete(ctx, goqu.Ex{colKind: kind, colObjectKey: key})
	return n > 0, err
}

func (r *sqlObjectRepo) DeleteAll(ctx context.Context, kind string) (int64, error) {
	return r.delete(ctx, goqu.Ex{colKind: kind})
}

func (r *sqlObjectRepo) delete(ctx context.Context, where goqu.Ex) (int64, error) {
	query, args, err := r.builder().
		Delete(tableObject).
		Where(where).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SQL preference repo

type sqlPreferenceRepo struct {
	db      *sqlx.DB
	dialect string
}

type preferenceRow struct {
	Key   string `db:"pref_key"`
	Value string `db:"value"`
}

func (r *sqlPreferenceRepo) builder() goqu.DialectWrapper { return goquDialect(r.dialect) }

func (r *sqlPreferenceRepo) Get(ctx context.Context, file, key string) (string, error) {
	query, args, err := r.builder().
		From(tablePreference).
		Select(colValue).
		Where(goqu.Ex{colFile: file, colPrefKey: key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", err
	}
	var value string
	err = r.db.GetContext(ctx, &value, query, args...)
	if noRows(err) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *sqlPreferenceRepo) Set(ctx context.Context, file, key, value string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	b := r.builder()
	countQuery, countArgs, err := b.
		From(tablePreference).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colFile: file, colPrefKey: key}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	var n int64
	if err := tx.GetContext(ctx, &n, countQuery, countArgs...); err != nil {
		return err
	}

	now := time.Now().UTC()
	var query string
	var args []any
	if n > 0 {
		query, args, err = b.
			Update(tablePreference).
			Set(goqu.Record{colValue: value, colDateUpdated: now}).
			Where(goqu.Ex{colFile: file, colPrefKey: key}).
			Prepared(true).
			ToSQL()
	} else {
		query, args, err = b.
			Insert(tablePreference).
			Rows(goqu.Record{colFile: file, colPrefKey: key, colValue: value, colDateUpdated: now}).
			Prepared(true).
			ToSQL()
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return MapDBError(err)
	}
	return tx.Commit()
}

func (r *sqlPreferenceRepo) All(ctx context.Context, file string) (map[string]string, error) {
	query, args, err := r.builder().
		From(tablePreference).
		Select(colPrefKey, colValue).
		Where(goqu.Ex{colFile: file}).
		Order(goqu.C(colPrefKey).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	var rows []preferenceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *sqlPreferenceRepo) Delete(ctx context.Context, file, key string) error {
	return r.delete(ctx, goqu.Ex{colFile: file, colPrefKey: key})
}

func (r *sqlPreferenceRepo) Clear(ctx context.Context, file string) error {
	return r.delete(ctx, goqu.Ex{colFile: file})
}

func (r *sqlPreferenceRepo) delete(ctx context.Context, where goqu.Ex) error {
	query, args, err := r.builder().
		Delete(tablePreference).
		Where(where).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
