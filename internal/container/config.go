// Package container provides dependency injection and lifecycle management
// for the Grant-In-Aid portal following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/infrastructure/external/recordapi"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Record API configuration
	API recordapi.Config

	// Dashboard configuration
	Dashboard DashboardConfig

	// Export configuration
	Export ExportConfig

	// Session lifetime configuration
	Session SessionConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the embedded migrations on start
	AutoMigrate bool
}

// DashboardConfig holds dashboard behaviour.
type DashboardConfig struct {
	DefaultSite   string
	StatusOptions entity.StatusOptions
}

// ExportConfig holds export pipeline settings.
type ExportConfig struct {
	// OutputDir is the base directory for exported documents
	OutputDir string

	// Workers is the number of rendering goroutines
	Workers int

	// QueueSize bounds the jobs waiting for a worker
	QueueSize int

	// Timeout bounds how long a request waits for its document
	Timeout time.Duration
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	// IdleTimeout expires sessions unused for this long; zero disables it
	IdleTimeout time.Duration

	// TouchInterval throttles last-use writes
	TouchInterval time.Duration

	// SweepInterval is how often expired sessions are deleted
	SweepInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/portal.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		API: recordapi.Config{
			Timeout:          15 * time.Second,
			LoginPath:        recordapi.DefaultLoginPath,
			ListPath:         recordapi.DefaultListPath,
			UpdatePathPrefix: recordapi.DefaultUpdatePathPrefix,
			CreatePath:       recordapi.DefaultCreatePath,
		},
		Dashboard: DashboardConfig{
			DefaultSite:   entity.DefaultSite,
			StatusOptions: entity.DefaultStatusOptions(),
		},
		Export: ExportConfig{
			OutputDir: "exports",
			Workers:   2,
			QueueSize: 16,
			Timeout:   30 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout:   72 * time.Hour,
			TouchInterval: time.Minute,
			SweepInterval: 15 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Dashboard.DefaultSite == "" {
		return fmt.Errorf("dashboard.default_site is required")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	return nil
}
