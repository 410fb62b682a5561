// Package config loads and validates the goal tracker configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the GTR_ prefix (e.g. GTR_DATABASE_HOST
// overrides database.host in the YAML), so the same binary runs with a
// config.yaml in development and with pure environment variables in containers.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "GTR"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Credentials   CredentialsConfig   `mapstructure:"credentials"`
	Query         QueryConfig         `mapstructure:"query"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Audit         AuditConfig         `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
	// Backend is "memory" (per process token bucket) or "redis" (shared GCRA)
	Backend string `mapstructure:"backend"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// RedisConfig holds the shared Redis connection used by the redis rate limiter,
// the redis blacklist and expiry reminder deduplication.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// CredentialsConfig holds the time windows of the credential lifecycle.
type CredentialsConfig struct {
	// ChallengeTTL is how long a verification challenge can be finalized
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	// ChallengeInterval is the minimum gap between challenges for one email
	ChallengeInterval time.Duration `mapstructure:"challenge_interval"`
	// ResetTTL is how long a password reset key can be applied
	ResetTTL time.Duration `mapstructure:"reset_ttl"`
	// MaxAPIKeyDuration caps the lifetime of issued API keys; 0 means no cap
	MaxAPIKeyDuration time.Duration `mapstructure:"max_api_key_duration"`
}

// QueryConfig bounds list query pages.
type QueryConfig struct {
	DefaultPageSize int64 `mapstructure:"default_page_size"`
	MaxPageSize     int64 `mapstructure:"max_page_size"`
}

// NotificationsConfig holds settings for outbound notification emails
type NotificationsConfig struct {
	// Enabled toggles the expiry reminder job. Verification and reset mail is
	// always sent through Backend.
	Enabled bool `mapstructure:"enabled"`
	// Backend is "smtp" or "log" (development: logs instead of sending)
	Backend string `mapstructure:"backend"`
	// SiteName prefixes every subject line
	SiteName string `mapstructure:"site_name"`
	// WebsiteURL is the base of the confirmation and reset links
	WebsiteURL string     `mapstructure:"website_url"`
	SMTP       SMTPConfig `mapstructure:"smtp"`
	// Blacklist lists addresses that must never receive mail (case-insensitive)
	Blacklist []string `mapstructure:"blacklist"`
	// BlacklistBackend is "static" (Blacklist only) or "redis" (Blacklist plus a redis set)
	BlacklistBackend string `mapstructure:"blacklist_backend"`
	// APIKeyExpiryWarning is how long before expiry the reminder is sent
	APIKeyExpiryWarning time.Duration `mapstructure:"api_key_expiry_warning"`
	// APIKeyExpiryCheckInterval is how often the reminder job runs
	APIKeyExpiryCheckInterval time.Duration `mapstructure:"api_key_expiry_check_interval"`
}

// SMTPConfig holds outbound mail server configuration
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g. smtp.sendgrid.net)
	Host string `mapstructure:"host"`
	// Port is the SMTP server port (587 for STARTTLS, 465 for SMTPS, 25 for plain)
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// From is the sender address shown in notification emails
	From string `mapstructure:"from"`
	// UseTLS enables STARTTLS (port 587) or implicit TLS (port 465); false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
	// Timeout bounds a whole delivery, from dial to QUIT
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuditConfig holds the destinations of the credential audit trail. Each
// destination is active when its path or URL is set.
type AuditConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	File    AuditFileConfig    `mapstructure:"file"`
	Webhook AuditWebhookConfig `mapstructure:"webhook"`
}

// AuditFileConfig appends JSON lines to a local file with size-based rotation.
type AuditFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// AuditWebhookConfig posts entries to an HTTP collector.
type AuditWebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// BatchSize groups entries into one JSON array per request; 0 sends each entry alone
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// AutomaticEnv() alone does not reach nested keys during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",

		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.backend",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		"redis.enabled",
		"redis.addr",
		"redis.password",
		"redis.db",

		"logging.level",
		"logging.format",

		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		"credentials.challenge_ttl",
		"credentials.challenge_interval",
		"credentials.reset_ttl",
		"credentials.max_api_key_duration",

		"query.default_page_size",
		"query.max_page_size",

		"notifications.enabled",
		"notifications.backend",
		"notifications.site_name",
		"notifications.website_url",
		"notifications.smtp.host",
		"notifications.smtp.port",
		"notifications.smtp.username",
		"notifications.smtp.password",
		"notifications.smtp.from",
		"notifications.smtp.use_tls",
		"notifications.smtp.timeout",
		"notifications.blacklist",
		"notifications.blacklist_backend",
		"notifications.api_key_expiry_warning",
		"notifications.api_key_expiry_check_interval",

		"audit.enabled",
		"audit.file.path",
		"audit.file.max_size_mb",
		"audit.file.max_backups",
		"audit.webhook.url",
		"audit.webhook.timeout",
		"audit.webhook.batch_size",
		"audit.webhook.flush_interval",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg, _, err := load(configPath)
	return cfg, err
}

// LoadAndWatch loads configuration like Load and, when a config file is in
// use, calls onChange with the re-read configuration every time the file
// changes. Reloads that fail validation are logged and skipped.
func LoadAndWatch(configPath string, onChange func(*Config)) (*Config, error) {
	cfg, v, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" || onChange == nil {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			slog.Error("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name)
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func load(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/goaltracker")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment variables only
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Notifications.SMTP.Password = expandEnv(cfg.Notifications.SMTP.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "goaltracker")
	v.SetDefault("database.user", "goaltracker")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 60)
	v.SetDefault("security.rate_limiting.burst", 10)
	v.SetDefault("security.rate_limiting.backend", "memory")
	v.SetDefault("security.tls.enabled", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.service_name", "goaltracker")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	v.SetDefault("credentials.challenge_ttl", "15m")
	v.SetDefault("credentials.challenge_interval", "5m")
	v.SetDefault("credentials.reset_ttl", "15m")
	v.SetDefault("credentials.max_api_key_duration", "0s")

	v.SetDefault("query.default_page_size", 100)
	v.SetDefault("query.max_page_size", 1000)

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.backend", "log")
	v.SetDefault("notifications.site_name", "Goal Tracker")
	v.SetDefault("notifications.website_url", "http://localhost:3000")
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("notifications.smtp.use_tls", true)
	v.SetDefault("notifications.smtp.timeout", "10s")
	v.SetDefault("notifications.blacklist", []string{})
	v.SetDefault("notifications.blacklist_backend", "static")
	v.SetDefault("notifications.api_key_expiry_warning", "72h")
	v.SetDefault("notifications.api_key_expiry_check_interval", "1h")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.file.max_size_mb", 100)
	v.SetDefault("audit.file.max_backups", 5)
	v.SetDefault("audit.webhook.timeout", "10s")
	v.SetDefault("audit.webhook.batch_size", 0)
	v.SetDefault("audit.webhook.flush_interval", "5s")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	switch c.Security.RateLimiting.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("redis.enabled is required when security.rate_limiting.backend is redis")
		}
	default:
		return fmt.Errorf("invalid rate limiting backend: %s (must be memory or redis)", c.Security.RateLimiting.Backend)
	}
	if c.Security.RateLimiting.Enabled && c.Security.RateLimiting.RequestsPerMinute <= 0 {
		return fmt.Errorf("security.rate_limiting.requests_per_minute must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Credentials.ChallengeTTL <= 0 || c.Credentials.ChallengeInterval <= 0 || c.Credentials.ResetTTL <= 0 {
		return fmt.Errorf("credentials windows must be positive")
	}
	if c.Credentials.MaxAPIKeyDuration < 0 {
		return fmt.Errorf("credentials.max_api_key_duration must not be negative")
	}

	if c.Query.DefaultPageSize <= 0 {
		return fmt.Errorf("query.default_page_size must be positive")
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return fmt.Errorf("query.max_page_size (%d) must be at least query.default_page_size (%d)",
			c.Query.MaxPageSize, c.Query.DefaultPageSize)
	}

	switch c.Notifications.Backend {
	case "log":
	case "smtp":
		if c.Notifications.SMTP.Host == "" {
			return fmt.Errorf("notifications.smtp.host is required when notifications.backend is smtp")
		}
		if c.Notifications.SMTP.From == "" {
			return fmt.Errorf("notifications.smtp.from is required when notifications.backend is smtp")
		}
	default:
		return fmt.Errorf("invalid notifications backend: %s (must be smtp or log)", c.Notifications.Backend)
	}
	switch c.Notifications.BlacklistBackend {
	case "static":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("redis.enabled is required when notifications.blacklist_backend is redis")
		}
	default:
		return fmt.Errorf("invalid blacklist backend: %s (must be static or redis)", c.Notifications.BlacklistBackend)
	}
	if c.Notifications.Enabled && (c.Notifications.APIKeyExpiryWarning <= 0 || c.Notifications.APIKeyExpiryCheckInterval <= 0) {
		return fmt.Errorf("notifications api key expiry warning and check interval must be positive")
	}

	if c.Audit.Enabled && c.Audit.File.Path == "" && c.Audit.Webhook.URL == "" {
		return fmt.Errorf("audit.file.path or audit.webhook.url is required when audit is enabled")
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
