// Package dbx holds the small database/sql helpers shared by the SQL
// registry snapshot stores: the driver dialects they run on and a helper
// that runs a function inside a transaction.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite"
	default:
		return string(d)
	}
}

// GooseDialect is the dialect name goose expects.
func (d Dialect) GooseDialect() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite3"
	default:
		return string(d)
	}
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns n comma separated bind parameters.
func (d Dialect) Placeholders(n int) string {
	s := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			s += ", "
		}
		s += d.Placeholder(i)
	}
	return s
}

// DBTX is the subset of database/sql used by the snapshot stores.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with it, and then commits on success
// or rolls back on error or panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
