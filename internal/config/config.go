// Package config provides centralized configuration management for tabmerge.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Merge    MergeConfig
	Database DatabaseConfig
	Security SecurityConfig
	Logging  LoggingConfig

	Maintenance MaintenanceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1, the caller is a local UI)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8787)
	Port int `env:"SERVER_PORT" default:"8787"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, merges can be long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// MergeConfig holds merge pipeline settings.
type MergeConfig struct {
	// TempDir is where archive members are extracted (default: OS temp dir)
	TempDir string `env:"MERGE_TEMP_DIR"`

	// OutputDir resolves relative output paths sent by callers (default: working dir)
	OutputDir string `env:"MERGE_OUTPUT_DIR"`

	// MaxFileSize is the largest source or archive member accepted, e.g. "512MB"
	MaxFileSize int64 `env:"MERGE_MAX_FILE_SIZE" default:"512MB" bytes:"true"`

	// MaxConcurrent is the maximum number of merges running at once (default: 2)
	MaxConcurrent int `env:"MERGE_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a merge waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"MERGE_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single merge request including decision round-trips (default: 10m)
	Timeout time.Duration `env:"MERGE_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds the optional audit log database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the audit log.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// MaintenanceConfig holds background cleanup settings for the server.
type MaintenanceConfig struct {
	// Interval is how often maintenance runs (default: 1h)
	Interval time.Duration `env:"MAINTENANCE_INTERVAL" default:"1h"`

	// WorkspaceMaxAge is when an abandoned merge workspace gets removed (default: 24h)
	WorkspaceMaxAge time.Duration `env:"WORKSPACE_MAX_AGE" default:"24h"`

	// AuditRetentionDays is how long audit records are kept; negative keeps all (default: 90)
	AuditRetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"90"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AuditEnabled reports whether merge runs should be recorded in PostgreSQL.
func (c *DatabaseConfig) AuditEnabled() bool {
	return c.URL != ""
}
