package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// DefaultPath is the config file read when no path is given
const DefaultPath = "configs/config.yaml"

// EnvPrefix prefixes every environment override, e.g. GIA_API_BASE_URL
const EnvPrefix = "GIA"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Portal    PortalConfig    `mapstructure:"portal"`
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Export    ExportConfig    `mapstructure:"export"`
	Session   SessionConfig   `mapstructure:"session"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PortalConfig holds browser-facing settings
type PortalConfig struct {
	SessionCookie string `mapstructure:"session_cookie"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`
	RequireLogin  bool   `mapstructure:"require_login"`
	PostLoginPath string `mapstructure:"post_login_path"`
	CSRFKey       string `mapstructure:"csrf_key"`
	CSRFEnabled   bool   `mapstructure:"csrf_enabled"`
}

// APIConfig holds Record API client configuration
type APIConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	LoginPath        string        `mapstructure:"login_path"`
	ListPath         string        `mapstructure:"list_path"`
	UpdatePathPrefix string        `mapstructure:"update_path_prefix"`
	CreatePath       string        `mapstructure:"create_path"`
	AttachToken      bool          `mapstructure:"attach_token"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// DashboardConfig holds dashboard behaviour
type DashboardConfig struct {
	DefaultSite string `mapstructure:"default_site"`

	// StatusVocabulary picks the built-in status list ("current" or
	// "legacy") when StatusOptions is empty
	StatusVocabulary string   `mapstructure:"status_vocabulary"`
	StatusOptions    []string `mapstructure:"status_options"`
}

// resolveStatusOptions fills StatusOptions from the vocabulary
func (d *DashboardConfig) resolveStatusOptions() error {
	if len(d.StatusOptions) > 0 {
		return nil
	}
	switch d.StatusVocabulary {
	case "", "current":
		d.StatusOptions = entity.DefaultStatusOptions()
	case "legacy":
		d.StatusOptions = entity.LegacyStatusOptions()
	default:
		return fmt.Errorf("dashboard.status_vocabulary must be current or legacy, got %q", d.StatusVocabulary)
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ExportConfig holds export pipeline configuration
type ExportConfig struct {
	OutputDir string        `mapstructure:"output_dir"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SessionConfig holds session lifetime configuration
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from a .env file, the config file and environment
// variables, in increasing order of precedence. A missing config file is not
// an error when configPath is empty; everything can then come from the
// environment.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Dashboard.resolveStatusOptions(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv applies a .env file to the process environment when present.
// Variables already set are not overridden.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	// Portal defaults
	v.SetDefault("portal.session_cookie", "gia_session")
	v.SetDefault("portal.cookie_secure", false)
	v.SetDefault("portal.require_login", true)
	v.SetDefault("portal.post_login_path", "/home")
	v.SetDefault("portal.csrf_enabled", true)

	// Record API defaults
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.login_path", "/api/login")
	v.SetDefault("api.list_path", "/api/dashboard/{site}/")
	v.SetDefault("api.update_path_prefix", "/dashboard/update")
	v.SetDefault("api.create_path", "/api/form/{site}/records")
	v.SetDefault("api.attach_token", false)
	v.SetDefault("api.user_agent", "grant-portal/1.0")

	// Dashboard defaults
	v.SetDefault("dashboard.default_site", entity.DefaultSite)
	v.SetDefault("dashboard.status_vocabulary", "current")

	// Database defaults
	v.SetDefault("database.path", "data/portal.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Export defaults
	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("export.workers", 2)
	v.SetDefault("export.queue_size", 16)
	v.SetDefault("export.timeout", 30*time.Second)

	// Session defaults
	v.SetDefault("session.idle_timeout", 72*time.Hour)
	v.SetDefault("session.sweep_interval", 15*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables without a config default
func bindEnvVars(v *viper.Viper) {
	// Deployment-specific values from environment
	_ = v.BindEnv("api.base_url", "GIA_API_BASE_URL", "RECORD_API_BASE_URL")
	_ = v.BindEnv("portal.csrf_key", "GIA_PORTAL_CSRF_KEY", "GIA_CSRF_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if strings.TrimSpace(c.Dashboard.DefaultSite) == "" {
		return fmt.Errorf("dashboard.default_site is required")
	}
	if len(c.Dashboard.StatusOptions) == 0 {
		return fmt.Errorf("dashboard.status_options must not be empty")
	}

	if c.Portal.CSRFEnabled && len(c.Portal.CSRFKey) != 32 {
		return fmt.Errorf("portal.csrf_key must be 32 bytes when CSRF is enabled")
	}
	if !strings.HasPrefix(c.Portal.PostLoginPath, "/") {
		return fmt.Errorf("portal.post_login_path must start with /")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	if c.Export.Workers <= 0 {
		return fmt.Errorf("export.workers must be positive")
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must not be negative")
	}

	return nil
}
