// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/vibebill/internal/migrate"
	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// busyTimeout is how long a writer waits for the database lock before the
// operation fails with a ConflictError.
const busyTimeout = 5 * time.Second

// Options tune a SQLiteStore.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// NumberWidth zero-pads invoice counters to this many digits.
	// 0 renders them plain (RE1).
	NumberWidth int

	// Migrations overrides the schema registry. Defaults to Registry().
	Migrations []migrate.Migration
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	schema      migrate.State
	now         func() time.Time
	numberWidth int
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and migrates the schema to the latest
// version before returning; no store is handed out for a partially
// migrated database.
func New(dbPath string, opts Options) (*SQLiteStore, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	registry := opts.Migrations
	if registry == nil {
		registry = Registry()
	}
	state, err := migrate.Up(context.Background(), db, registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Schema ready", "version", state.Version, "applied", len(state.Applied), "run_id", state.RunID)

	s := &SQLiteStore{
		db:          db,
		schema:      state,
		now:         opts.Now,
		numberWidth: opts.NumberWidth,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// OpenDB opens the database file without migrating it, creating parent
// directories as needed. Most callers want New; OpenDB serves read-only
// inspection such as listing pending migrations.
func OpenDB(dbPath string) (*sql.DB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection turns every write transaction into a
	// serializing section for in-process callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens an existing database without creating or migrating
// it. A missing file yields an error matching os.ErrNotExist.
func OpenReadOnly(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath)+"&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_txlock=immediate",
		path, busyTimeout.Milliseconds())
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the schema version the store was opened at.
func (s *SQLiteStore) SchemaVersion() int {
	return s.schema.Version
}

// Schema returns the result of the startup migration run.
func (s *SQLiteStore) Schema() migrate.State {
	return s.schema
}

// DB exposes the underlying handle for diagnostics such as listing the
// migration ledger.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// today returns the store's current calendar day.
func (s *SQLiteStore) today() time.Time {
	return models.Day(s.now())
}

// withTx runs fn in a write transaction. SQLITE_BUSY and SQLITE_LOCKED are
// reported as *models.ConflictError so callers can retry with fresh state.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return classify(op, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify maps lock contention to ConflictError and leaves other errors alone.
func classify(op string, err error) error {
	var serr *msqlite.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return &models.ConflictError{Op: op, Err: err}
	}
	return err
}

// isConstraint reports whether err is the given extended constraint code.
func isConstraint(err error, code int) bool {
	var serr *msqlite.Error
	return errors.As(err, &serr) && serr.Code() == code
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exists reports whether a row with the given id exists in table.
func exists(ctx context.Context, q queryer, table string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	return true, nil
}

// count runs a COUNT(*) query.
func count(ctx context.Context, q queryer, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// toReal converts a decimal for a REAL column.
func toReal(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// nullReal converts an optional decimal for a nullable REAL column.
func nullReal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

// money rounds a value read from a REAL column or aggregate to cents.
func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// nullInt64 maps 0 to NULL for optional foreign keys.
func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
