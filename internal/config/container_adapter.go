package config

import (
	"github.com/garyjia/grant-portal/internal/container"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/infrastructure/external/recordapi"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		API: recordapi.Config{
			BaseURL:          c.API.BaseURL,
			Timeout:          c.API.Timeout,
			LoginPath:        c.API.LoginPath,
			ListPath:         c.API.ListPath,
			UpdatePathPrefix: c.API.UpdatePathPrefix,
			CreatePath:       c.API.CreatePath,
			AttachToken:      c.API.AttachToken,
			UserAgent:        c.API.UserAgent,
		},
		Dashboard: container.DashboardConfig{
			DefaultSite:   c.Dashboard.DefaultSite,
			StatusOptions: entity.StatusOptions(c.Dashboard.StatusOptions),
		},
		Export: container.ExportConfig{
			OutputDir: c.Export.OutputDir,
			Workers:   c.Export.Workers,
			QueueSize: c.Export.QueueSize,
			Timeout:   c.Export.Timeout,
		},
		Session: container.SessionConfig{
			IdleTimeout:   c.Session.IdleTimeout,
			SweepInterval: c.Session.SweepInterval,
		},
	}
}
