package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mmynk/vibebill/internal/models"
)

// GetSetting returns the stored value of key. Known keys without a row
// resolve to their default; unknown keys resolve to "".
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(value, '') FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SettingDefaults[key], nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting inserts or replaces a setting.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return models.NewValidationError("setting", "key", key, "must not be empty")
	}
	return s.withTx(ctx, "set setting", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert setting: %w", err)
		}
		return nil
	})
}

// ListSettings returns every stored setting plus the defaults of known keys
// that have no row, ordered by key.
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, COALESCE(value, '') FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var settings []models.Setting
	for rows.Next() {
		var st models.Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		seen[st.Key] = true
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}

	for key, value := range models.SettingDefaults {
		if !seen[key] {
			settings = append(settings, models.Setting{Key: key, Value: value})
		}
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}
