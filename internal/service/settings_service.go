package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/vibebill/internal/models"
	"github.com/mmynk/vibebill/internal/storage"
)

// SettingsService reads and writes process-wide preferences.
type SettingsService struct {
	store storage.Store
	run   *runner
}

// NewSettingsService creates a new SettingsService with the given storage backend.
func NewSettingsService(store storage.Store, opts Options) *SettingsService {
	return &SettingsService{store: store, run: newRunner(opts)}
}

// Get returns the value of key, or its default when unset.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	return call(ctx, s.run, "get_setting", func(ctx context.Context) (string, error) {
		return s.store.GetSetting(ctx, key)
	})
}

// Set stores value under key, replacing any previous value.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	slog.Info("SetSetting request received", "key", key, "value", value)

	err := s.run.do(ctx, "set_setting", func(ctx context.Context) error {
		return s.store.SetSetting(ctx, key, value)
	})
	if err != nil {
		slog.Error("SetSetting failed", "key", key, "error", err)
		return err
	}
	return nil
}

// List returns all stored settings merged with the defaults.
func (s *SettingsService) List(ctx context.Context) ([]models.Setting, error) {
	return call(ctx, s.run, "list_settings", s.store.ListSettings)
}

// Locale returns the configured UI locale ("de" or "en").
func (s *SettingsService) Locale(ctx context.Context) (string, error) {
	return s.Get(ctx, models.SettingLocale)
}
