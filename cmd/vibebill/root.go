package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/vibebill/internal/config"
	"github.com/mmynk/vibebill/internal/metrics"
	"github.com/mmynk/vibebill/internal/service"
	"github.com/mmynk/vibebill/internal/storage/sqlite"
	"github.com/mmynk/vibebill/pkg/logging"
)

var version = "0.5.0"

// app holds what a command needs once configuration is loaded.
type app struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	store    *sqlite.SQLiteStore
	services *service.Services

	// flags
	cfgFile  string
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vibebill",
		Short: "Maintain a vibebill invoice database",
		Long: `vibebill maintains the SQLite database of the vibebill invoicing app.

Every command that opens the database first migrates it to the latest
schema version. Configuration is read from config.toml, a .env file and
VIBEBILL_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/vibebill/config.toml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides database.path)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")

	root.AddCommand(
		newMigrateCmd(a),
		newStatusCmd(a),
		newSweepCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newSettingsCmd(a),
	)
	return root
}

// load reads the configuration and sets up logging.
func (a *app) load() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	logging.SetupWithLevel(logging.ParseLevel(cfg.Log.Level))
	a.metrics = metrics.New()
	return nil
}

// withStore migrates and opens the store, runs fn and closes the store.
func (a *app) withStore(fn func() error) error {
	store, err := sqlite.New(a.cfg.Database.Path, sqlite.Options{
		NumberWidth: a.cfg.Invoice.NumberWidth,
	})
	if err != nil {
		return err
	}
	defer func() {
		store.Close()
		a.store, a.services = nil, nil
	}()
	slog.Info("Storage initialized", "database", a.cfg.Database.Path, "schema_version", store.SchemaVersion())

	schema := store.Schema()
	a.metrics.RecordSchema(schema.Version, len(schema.Applied))
	a.store = store
	a.services = service.New(store, service.Options{
		RetryAttempts: a.cfg.Service.RetryAttempts,
		RetryBackoff:  a.cfg.Service.RetryBackoff,
		Metrics:       a.metrics,
	})
	return fn()
}

// close writes the metrics textfile when one is configured.
func (a *app) close() error {
	if a.cfg.Metrics.Textfile == "" || a.metrics == nil {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	slog.Debug("Metrics written", "path", a.cfg.Metrics.Textfile)
	return nil
}
