// Package config provides centralized configuration management for the loader.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"time"

	"github.com/JonMunkholm/recordstore/internal/store"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// ConnectTimeout bounds opening the store connections (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// StoreConfig holds record store behaviour.
type StoreConfig struct {
	// FailurePolicy is propagate or legacy (default: propagate)
	FailurePolicy string `env:"STORE_FAILURE_POLICY" default:"propagate"`

	// UseCopy writes batches with COPY when keys are not generated (default: false)
	UseCopy bool `env:"STORE_USE_COPY" default:"false"`
}

// ImportConfig holds the files imported at startup.
type ImportConfig struct {
	// LocalityFile is a tab-separated locality export. Empty skips the import.
	LocalityFile string `env:"IMPORT_LOCALITY_FILE"`

	// LocalityCharset is the encoding of LocalityFile (default: UTF-8)
	LocalityCharset string `env:"IMPORT_LOCALITY_CHARSET" default:"UTF-8"`

	// DepartmentFile is a semicolon-separated department export. Empty skips the import.
	DepartmentFile string `env:"IMPORT_DEPARTMENT_FILE"`

	// DepartmentCharset is the encoding of DepartmentFile (default: UTF-8)
	DepartmentCharset string `env:"IMPORT_DEPARTMENT_CHARSET" default:"UTF-8"`

	// ResetFirst empties every table before importing (default: false)
	ResetFirst bool `env:"IMPORT_RESET_FIRST" default:"false"`

	// SkipMalformed skips lines the parser rejects instead of failing (default: false)
	SkipMalformed bool `env:"IMPORT_SKIP_MALFORMED" default:"false"`

	// Timeout is the maximum duration for one file import (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Options converts the store section to store.Options.
// Call it on a validated config; an unknown policy falls back to propagate.
func (c StoreConfig) Options() store.Options {
	policy, _ := store.ParsePolicy(c.FailurePolicy)
	return store.Options{Policy: policy, UseCopy: c.UseCopy}
}
