package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	e := &envReader{lookup: os.LookupEnv}
	cfg := &Config{
		Server:   e.server(),
		Database: e.database(),
		Import:   e.importSettings(),
		Rate:     e.rate(),
		Security: e.security(),
		Logging:  e.logging(),
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func (e *envReader) server() ServerConfig {
	return ServerConfig{
		Host:            e.str("SERVER_HOST", "0.0.0.0"),
		Port:            e.integer("SERVER_PORT", 8080),
		ReadTimeout:     e.duration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    e.duration("SERVER_WRITE_TIMEOUT", 0),
		IdleTimeout:     e.duration("SERVER_IDLE_TIMEOUT", time.Minute),
		ShutdownTimeout: e.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		RequestTimeout:  e.duration("SERVER_REQUEST_TIMEOUT", time.Minute),
	}
}

func (e *envReader) database() DatabaseConfig {
	url := e.str("DATABASE_URL", "")
	if url == "" {
		url = e.str("DB_URL", "")
	}
	return DatabaseConfig{
		URL:             url,
		MaxConns:        e.integer("DB_MAX_CONNS", 20),
		MinConns:        e.integer("DB_MIN_CONNS", 4),
		MaxConnLifetime: e.duration("DB_MAX_CONN_LIFETIME", time.Hour),
		MaxConnIdleTime: e.duration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
	}
}

func (e *envReader) importSettings() ImportConfig {
	return ImportConfig{
		MaxFileSize:   e.integer64("IMPORT_MAX_FILE_SIZE", 20<<20),
		MaxConcurrent: e.integer("IMPORT_MAX_CONCURRENT", 3),
		MaxWaitTime:   e.duration("IMPORT_MAX_WAIT_TIME", 30*time.Second),
		Timeout:       e.duration("IMPORT_TIMEOUT", 10*time.Minute),
		SessionTTL:    e.duration("IMPORT_SESSION_TTL", 30*time.Minute),
		SampleRows:    e.integer("IMPORT_SAMPLE_ROWS", 10),
		PolicyFile:    e.str("IMPORT_POLICY_FILE", ""),
	}
}

func (e *envReader) rate() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           e.boolean("RATE_LIMIT_ENABLED", true),
		RequestsPerMinute: e.integer("RATE_LIMIT_REQUESTS_PER_MINUTE", 100),
		ImportLimit:       e.integer("RATE_LIMIT_IMPORT", 10),
	}
}

func (e *envReader) security() SecurityConfig {
	return SecurityConfig{
		TrustedProxies: e.list("TRUSTED_PROXIES"),
		EnableCSP:      e.boolean("SECURITY_ENABLE_CSP", true),
		RequireAPIKey:  e.boolean("REQUIRE_API_KEY", false),
		APIKeys:        e.list("API_KEYS"),
	}
}

func (e *envReader) logging() LoggingConfig {
	return LoggingConfig{
		Level:  e.str("LOG_LEVEL", "info"),
		Format: e.str("LOG_FORMAT", "text"),
	}
}

// envReader reads typed values from the environment. Parse failures are
// collected so one Load reports every bad variable.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

// raw returns the trimmed value of name; empty counts as unset.
func (e *envReader) raw(name string) (string, bool) {
	v, ok := e.lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(name, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid value for %s=%q: %w", name, value, err))
}

func (e *envReader) str(name, def string) string {
	if v, ok := e.raw(name); ok {
		return v
	}
	return def
}

func (e *envReader) integer(name string, def int) int {
	v, ok := e.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, v, err)
		return def
	}
	return n
}

func (e *envReader) integer64(name string, def int64) int64 {
	v, ok := e.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(name, v, err)
		return def
	}
	return n
}

func (e *envReader) boolean(name string, def bool) bool {
	v, ok := e.raw(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, v, err)
		return def
	}
	return b
}

func (e *envReader) duration(name string, def time.Duration) time.Duration {
	v, ok := e.raw(name)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, v, err)
		return def
	}
	return d
}

// list splits a comma-separated value, dropping blank entries.
func (e *envReader) list(name string) []string {
	v, ok := e.raw(name)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}
	if c.Import.SessionTTL <= 0 {
		errs = append(errs, "IMPORT_SESSION_TTL must be positive")
	}
	if c.Import.SampleRows <= 0 {
		errs = append(errs, "IMPORT_SAMPLE_ROWS must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	url := "[MASKED]"
	if !c.Database.Enabled() {
		url = "[NONE]"
	}
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		url, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s, PolicyFile: %q}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Timeout, c.Import.PolicyFile))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
