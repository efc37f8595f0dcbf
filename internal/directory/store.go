package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

// Store persists the barcode directory in a SQL table. A postgres:// or
// postgresql:// DSN selects Postgres; anything else is a SQLite file path.
type Store struct {
	db     *sql.DB
	driver string
}

// OpenStore opens the store and makes sure the barcodes table exists.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	} else {
		if dsn == "" {
			dsn = "barcodes.db"
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureTable(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS barcodes (
		barcode TEXT PRIMARY KEY,
		customer_code TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure barcodes table: %w", err)
	}
	return nil
}

func (s *Store) upsertSQL() string {
	if s.driver == driverPostgres {
		return `INSERT INTO barcodes (barcode, customer_code) VALUES ($1, $2)
			ON CONFLICT (barcode) DO UPDATE SET customer_code = excluded.customer_code`
	}
	return `INSERT INTO barcodes (barcode, customer_code) VALUES (?, ?)
		ON CONFLICT (barcode) DO UPDATE SET customer_code = excluded.customer_code`
}

// Import upserts entries in a single transaction. Barcodes are stored in
// their normalized form, and a later entry for the same barcode wins.
func (s *Store) Import(ctx context.Context, entries []Entry) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	staged := New()
	for _, e := range entries {
		staged.Set(e.Barcode, e.CustomerCode)
	}
	for _, e := range staged.Entries() {
		if _, err := stmt.ExecContext(ctx, e.Barcode, e.CustomerCode); err != nil {
			return fmt.Errorf("upsert barcode %s: %w", e.Barcode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.Info("Barcodes imported", "driver", s.driver, "entries", staged.Len())
	return nil
}

// LoadInto copies every stored entry into dir.
func (s *Store) LoadInto(ctx context.Context, dir *Directory) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT barcode, customer_code FROM barcodes`)
	if err != nil {
		return 0, fmt.Errorf("select barcodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Barcode, &e.CustomerCode); err != nil {
			return n, fmt.Errorf("scan: %w", err)
		}
		dir.Set(e.Barcode, e.CustomerCode)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterate barcodes: %w", err)
	}
	return n, nil
}

// Count returns the number of stored barcodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM barcodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count barcodes: %w", err)
	}
	return n, nil
}
