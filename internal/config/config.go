// Package config provides centralized configuration management for the import
// server and CLI.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string

	// Port is the port to listen on (default: 8080)
	Port int

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty the server keeps
	// imported records in memory.
	// Read from DATABASE_URL, falling back to DB_URL.
	URL string

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration
}

// ImportConfig holds workbook import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted workbook size in bytes (default: 20MB)
	MaxFileSize int64

	// MaxConcurrent is the maximum number of imports executing at once (default: 3)
	MaxConcurrent int

	// MaxWaitTime is how long an import waits for a free slot (default: 30s)
	MaxWaitTime time.Duration

	// Timeout bounds a single import execution (default: 10m)
	Timeout time.Duration

	// SessionTTL is how long an analyzed workbook stays available (default: 30m)
	SessionTTL time.Duration

	// SampleRows is the number of rows kept per column for previews (default: 10)
	SampleRows int

	// PolicyFile is an optional YAML file overriding the validation policy
	PolicyFile string
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int

	// ImportLimit is requests per minute for analyze and execute endpoints (default: 10)
	ImportLimit int
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string

	// Format is the log format: text or json (default: text)
	Format string
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
