// Package config loads vibebill settings from defaults, an optional TOML
// file, a .env file and VIBEBILL_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override,
// e.g. VIBEBILL_DATABASE_PATH.
const EnvPrefix = "VIBEBILL"

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Invoice  InvoiceConfig  `mapstructure:"invoice"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Service  ServiceConfig  `mapstructure:"service"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
}

// InvoiceConfig holds numbering settings.
type InvoiceConfig struct {
	// NumberWidth zero-pads invoice counters; 0 keeps them plain.
	NumberWidth int `mapstructure:"number_width"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is written after each command when set.
	Textfile string `mapstructure:"textfile"`
}

// ServiceConfig controls retries of operations that hit a locked database.
type ServiceConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// DefaultDatabasePath is the database location when none is configured.
func DefaultDatabasePath() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "vibebill", "vibebill.db")
}

// Load reads configuration. cfgFile names an explicit TOML file; when
// empty, VIBEBILL_CONFIG is consulted and then config.toml in
// ~/.config/vibebill and the working directory. A missing implicit config
// file is not an error.
func Load(cfgFile string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("log.level", "info")
	v.SetDefault("invoice.number_width", 0)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("service.retry_attempts", 3)
	v.SetDefault("service.retry_backoff", 50*time.Millisecond)

	v.SetConfigType("toml")

	if cfgFile == "" {
		cfgFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := cfgFile != ""
	if explicit {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "vibebill"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the store cannot work with.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Invoice.NumberWidth < 0 || c.Invoice.NumberWidth > 18 {
		return fmt.Errorf("invoice.number_width must be between 0 and 18, got %d", c.Invoice.NumberWidth)
	}
	if c.Service.RetryAttempts < 1 {
		return fmt.Errorf("service.retry_attempts must be at least 1, got %d", c.Service.RetryAttempts)
	}
	if c.Service.RetryBackoff < 0 {
		return fmt.Errorf("service.retry_backoff must not be negative, got %s", c.Service.RetryBackoff)
	}
	return nil
}
