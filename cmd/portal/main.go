package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/config"
	"github.com/garyjia/grant-portal/internal/container"
	httpapi "github.com/garyjia/grant-portal/internal/interfaces/http"
	"github.com/garyjia/grant-portal/pkg/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("GIA_CONFIG"), "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Grant-In-Aid portal",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.String("record_api", cfg.API.BaseURL))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Portal stopped with error", zap.Error(err))
	}
	logger.Info("Portal stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	services := c.Services()
	server, err := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		httpapi.PortalConfig{
			SessionCookie: cfg.Portal.SessionCookie,
			CookieSecure:  cfg.Portal.CookieSecure,
			RequireLogin:  cfg.Portal.RequireLogin,
			PostLoginPath: cfg.Portal.PostLoginPath,
			CSRFKey:       []byte(cfg.Portal.CSRFKey),
			CSRFEnabled:   cfg.Portal.CSRFEnabled,
			StatusOptions: c.Config().Dashboard.StatusOptions,
		},
		httpapi.Services{
			Auth:      services.Auth,
			Dashboard: services.Dashboard,
			Entry:     services.Entry,
			Export:    services.Export,
		},
		func() (bool, interface{}) {
			h := c.Health()
			return h.Overall, h.Components
		},
		utils.NewKVLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// Blocks until a signal arrives, then shuts the server down gracefully
	return server.Start(ctx)
}
