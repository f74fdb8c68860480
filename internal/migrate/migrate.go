// Package migrate applies an ordered registry of versioned schema changes to
// a SQLite database and records them in the schema_versions ledger.
//
// Each migration runs in its own transaction together with its ledger row,
// so a failing migration leaves the store exactly as the previous version
// left it.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LedgerTable is the name of the schema version ledger.
const LedgerTable = "schema_versions"

const ledgerSchema = `CREATE TABLE IF NOT EXISTS schema_versions (
    version INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at TEXT NOT NULL,
    run_id TEXT NOT NULL
)`

var (
	// ErrInvalidRegistry is returned when the registry itself is malformed.
	ErrInvalidRegistry = errors.New("invalid migration registry")

	// ErrLedgerGap is returned when the ledger does not hold exactly 1..N.
	ErrLedgerGap = errors.New("schema ledger has a version gap")

	// ErrStoreAhead is returned when the store was migrated by a newer build.
	ErrStoreAhead = errors.New("store schema is newer than this build")
)

// Migration is one versioned, append-only schema change.
type Migration struct {
	Version     int
	Description string
	Operations  []Operation
}

// Record is one ledger row.
type Record struct {
	Version     int
	Description string
	AppliedAt   string
	RunID       string
}

// State is the schema version of a store after migrating it.
type State struct {
	// Version is the ledger high-water mark (0 for an empty store).
	Version int

	// Applied lists the migrations applied by this run, in order.
	Applied []Record

	// RunID identifies this run in the ledger.
	RunID string
}

// MigrationError reports a migration that failed and was rolled back.
type MigrationError struct {
	Version     int
	Description string
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Description, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Validate checks that versions start at 1 and increase by exactly one, that
// every migration is described, and that every operation is well formed.
func Validate(registry []Migration) error {
	for i, m := range registry {
		if m.Version != i+1 {
			return fmt.Errorf("%w: position %d has version %d, want %d", ErrInvalidRegistry, i, m.Version, i+1)
		}
		if m.Description == "" {
			return fmt.Errorf("%w: version %d has no description", ErrInvalidRegistry, m.Version)
		}
		for _, op := range m.Operations {
			v, ok := op.(interface{ validate() error })
			if !ok {
				continue
			}
			if err := v.validate(); err != nil {
				return fmt.Errorf("%w: version %d: %v", ErrInvalidRegistry, m.Version, err)
			}
		}
	}
	return nil
}

// Up applies every pending migration of the registry.
func Up(ctx context.Context, db *sql.DB, registry []Migration) (State, error) {
	return UpTo(ctx, db, registry, len(registry))
}

// UpTo applies pending migrations up to and including version target.
// A target at or below the current version is a no-op.
func UpTo(ctx context.Context, db *sql.DB, registry []Migration, target int) (State, error) {
	state := State{RunID: uuid.New().String()}

	if err := Validate(registry); err != nil {
		return state, err
	}
	if target < 0 || target > len(registry) {
		return state, fmt.Errorf("%w: target version %d outside 0..%d", ErrInvalidRegistry, target, len(registry))
	}

	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		return state, fmt.Errorf("failed to create schema ledger: %w", err)
	}

	records, err := Records(ctx, db)
	if err != nil {
		return state, err
	}
	for i, r := range records {
		if r.Version != i+1 {
			return state, fmt.Errorf("%w: found version %d at position %d", ErrLedgerGap, r.Version, i+1)
		}
	}
	state.Version = len(records)
	if state.Version > len(registry) {
		return state, fmt.Errorf("%w: store is at version %d, registry ends at %d", ErrStoreAhead, state.Version, len(registry))
	}

	if target <= state.Version {
		return state, nil
	}

	for _, m := range registry[state.Version:target] {
		rec, applied, err := apply(ctx, db, m, state.RunID)
		if err != nil {
			return state, &MigrationError{Version: m.Version, Description: m.Description, Err: err}
		}
		state.Version = m.Version
		if applied {
			state.Applied = append(state.Applied, rec)
			slog.Info("Migration applied", "version", m.Version, "description", m.Description, "run_id", state.RunID)
		}
	}

	return state, nil
}

// apply runs one migration and its ledger row in a single transaction. It
// reports applied=false when another process recorded the version first.
func apply(ctx context.Context, db *sql.DB, m Migration, runID string) (Record, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&current); err != nil {
		return Record{}, false, fmt.Errorf("failed to read schema ledger: %w", err)
	}
	if current >= m.Version {
		slog.Debug("Migration already applied", "version", m.Version)
		return Record{}, false, nil
	}
	if current != m.Version-1 {
		return Record{}, false, fmt.Errorf("%w: store is at version %d", ErrLedgerGap, current)
	}

	for _, op := range m.Operations {
		if err := op.Apply(ctx, tx); err != nil {
			return Record{}, false, fmt.Errorf("%s: %w", op, err)
		}
	}

	rec := Record{
		Version:     m.Version,
		Description: m.Description,
		AppliedAt:   time.Now().UTC().Format(time.RFC3339),
		RunID:       runID,
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_versions (version, description, applied_at, run_id) VALUES (?, ?, ?, ?)",
		rec.Version, rec.Description, rec.AppliedAt, rec.RunID,
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rec, true, nil
}

// Records lists the ledger in version order. A store without a ledger has no records.
func Records(ctx context.Context, db *sql.DB) ([]Record, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", LedgerTable,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if exists == 0 {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		"SELECT version, description, applied_at, run_id FROM schema_versions ORDER BY version",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Version, &r.Description, &r.AppliedAt, &r.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger: %w", err)
	}
	return records, nil
}

// Current returns the ledger high-water mark.
func Current(ctx context.Context, db *sql.DB) (int, error) {
	records, err := Records(ctx, db)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return records[len(records)-1].Version, nil
}
