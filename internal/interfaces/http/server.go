// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTML form posts to application
// service calls and renders the results.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// PortalConfig holds browser-facing behaviour
type PortalConfig struct {
	SessionCookie string
	CookieSecure  bool
	RequireLogin  bool
	PostLoginPath string
	CSRFKey       []byte
	CSRFEnabled   bool

	// StatusOptions populates the data entry form's status select
	StatusOptions entity.StatusOptions
}

// DefaultPortalConfig returns default portal configuration
func DefaultPortalConfig() PortalConfig {
	return PortalConfig{
		SessionCookie: "gia_session",
		RequireLogin:  true,
		PostLoginPath: "/home",
		StatusOptions: entity.DefaultStatusOptions(),
	}
}

// Services are the application services behind the portal
type Services struct {
	Auth      service.AuthService
	Dashboard service.DashboardService
	Entry     service.EntryService
	Export    service.ExportService
}

// HealthChecker reports component health for /health
type HealthChecker func() (bool, interface{})

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	portal     PortalConfig
	httpServer *http.Server
	router     *gin.Engine
	handler    http.Handler
	services   Services
	health     HealthChecker
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, portal PortalConfig, services Services, health HealthChecker, logger Logger) (*Server, error) {
	if portal.SessionCookie == "" {
		portal.SessionCookie = DefaultPortalConfig().SessionCookie
	}
	if portal.PostLoginPath == "" {
		portal.PostLoginPath = DefaultPortalConfig().PostLoginPath
	}
	if len(portal.StatusOptions) == 0 {
		portal.StatusOptions = DefaultPortalConfig().StatusOptions
	}
	if portal.CSRFEnabled && len(portal.CSRFKey) != 32 {
		return nil, errors.New("csrf key must be 32 bytes")
	}

	pages, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	router := gin.New()
	// route on the escaped path so a record key holding '/' stays one segment
	router.UseRawPath = true
	router.UnescapePathValues = true

	server := &Server{
		config:   config,
		portal:   portal,
		router:   router,
		services: services,
		health:   health,
		logger:   logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(pages)

	server.handler = router
	if portal.CSRFEnabled {
		protect := csrf.Protect(portal.CSRFKey,
			csrf.Secure(portal.CookieSecure),
			csrf.Path("/"),
			csrf.FieldName(csrfFieldName),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(server.csrfFailure)),
		)
		server.handler = protect(router)
	}

	return server, nil
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(pages *pageSet) {
	h := NewHandlers(s.services, s.portal, pages, newFlashStore(), s.health, s.logger)

	// Health check
	s.router.GET("/health", h.HealthCheck)

	web := s.router.Group("/")
	web.Use(s.sessionMiddleware())
	{
		web.GET("/login", h.LoginPage)
		web.POST("/login", h.Login)
		web.POST("/logout", h.Logout)
	}

	app := web.Group("/")
	app.Use(s.requireLoginMiddleware())
	{
		app.GET("/", h.Dashboard)
		app.GET("/home", h.Dashboard)
		app.GET("/dashboard", h.Dashboard)

		dash := app.Group("/dashboard")
		dash.POST("/refresh", h.Refresh)
		dash.POST("/site", h.SetSite)
		dash.POST("/filter", h.ApplyFilter)
		dash.POST("/filter/reset", h.ResetFilter)
		dash.POST("/records/:id/status", h.ChangeStatus)
		dash.POST("/records/:id/draft", h.EditComments)
		dash.POST("/records/:id/comment", h.SendComment)
		dash.GET("/records/:id/view", h.ViewRecord)
		dash.POST("/records/:id/delete", h.DeleteRecord)
		dash.GET("/records/:id/export", h.ExportRecord)

		app.GET("/form", h.FormPage)
		app.POST("/form", h.SubmitForm)
	}
}

// csrfFailure answers requests rejected by the CSRF middleware
func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.Error("CSRF validation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"reason", csrf.FailureReason(r))
	http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the root handler, CSRF protection included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
