package registry

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophbackup/internal/dbx"
	"github.com/dmitrijs2005/gophbackup/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// SQLSnapshot keeps the snapshot in the file_records table. Save swaps the
// table contents inside one transaction, so readers never see a partial
// snapshot.
type SQLSnapshot struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// OpenPostgresSnapshot connects with the pgx driver and applies migrations.
func OpenPostgresSnapshot(ctx context.Context, dsn string) (*SQLSnapshot, error) {
	return openSQLSnapshot(ctx, dbx.Postgres, dsn)
}

// OpenSQLiteSnapshot opens (creating if needed) an SQLite database file and
// applies migrations.
func OpenSQLiteSnapshot(ctx context.Context, path string) (*SQLSnapshot, error) {
	return openSQLSnapshot(ctx, dbx.SQLite, path)
}

func openSQLSnapshot(ctx context.Context, d dbx.Dialect, dsn string) (*SQLSnapshot, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := RunMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLSnapshot(db, d), nil
}

func NewSQLSnapshot(db *sql.DB, d dbx.Dialect) *SQLSnapshot {
	return &SQLSnapshot{db: db, dialect: d}
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.GooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *SQLSnapshot) Close() error {
	return s.db.Close()
}

func (s *SQLSnapshot) Load(ctx context.Context) ([]FileRecord, error) {
	query := `SELECT logical_name, storage_name, tier FROM file_records ORDER BY logical_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select file records: %w", err)
	}
	defer rows.Close()

	var result []FileRecord
	for rows.Next() {
		var logical, storage, tier string
		if err := rows.Scan(&logical, &storage, &tier); err != nil {
			return nil, err
		}
		rec, err := NewRecord(logical, storage)
		if err != nil {
			return nil, err
		}
		stored, err := ParseTier(tier)
		if err != nil {
			return nil, err
		}
		if stored != rec.Tier {
			return nil, fmt.Errorf("record %q: tier %s does not match storage name %q", logical, tier, storage)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLSnapshot) Save(ctx context.Context, records []FileRecord) error {
	query := fmt.Sprintf(`INSERT INTO file_records (logical_name, storage_name, tier) VALUES (%s)`,
		s.dialect.Placeholders(3))

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM file_records`); err != nil {
			return fmt.Errorf("clear file records: %w", err)
		}
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, query, rec.LogicalName, rec.StorageName, rec.Tier.String()); err != nil {
				return fmt.Errorf("insert %q: %w", rec.LogicalName, err)
			}
		}
		return nil
	})
}
