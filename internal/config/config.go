// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Fields are populated from environment variables.
type Config struct {
	// Server settings
	Port           int      // HTTP port to listen on
	Env            string   // development, staging, production
	AllowedOrigins []string // CORS origins for the practice client

	// Database
	DatabasePath string // Path to SQLite file

	// Authentication
	APIKey string // API key for endpoints that change the selection

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Calendar service
	HebcalBaseURL string        // Hebcal REST API root
	HebcalTimeout time.Duration // per-request timeout for event lookups

	// Audio comparison service
	CompareBaseURL string // root of the upload-recording/compare-audio API; empty disables the proxy

	// Verse grouping
	GroupSize int // default chunk size for grouped verse lists
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Load reads configuration from environment variables.
// In development, it first loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is a no-op in production where env vars are set directly
	_ = godotenv.Load()

	cfg := &Config{}

	// Server settings
	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Env = getEnv("ENV", EnvDevelopment)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", []string{"*"})

	// Database
	cfg.DatabasePath = getEnv("DATABASE_PATH", "./data/barmitzva.db")

	// Authentication
	cfg.APIKey = getEnv("API_KEY", "")

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	// External services
	cfg.HebcalBaseURL = getEnv("HEBCAL_BASE_URL", "https://www.hebcal.com")
	cfg.HebcalTimeout = getEnvDuration("HEBCAL_TIMEOUT", 10*time.Second)
	cfg.CompareBaseURL = compareBaseURL()

	cfg.GroupSize = getEnvInt("GROUP_SIZE", 3)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	// Validate environment
	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// Valid
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	// Validate database path is set
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}

	// API key is required in production
	if c.Env == EnvProduction && c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required in production"))
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	// Validate log format
	switch c.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	if err := validateHTTPURL("HEBCAL_BASE_URL", c.HebcalBaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.HebcalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HEBCAL_TIMEOUT must be positive, got %s", c.HebcalTimeout))
	}
	if c.CompareEnabled() {
		if err := validateHTTPURL("COMPARE_BASE_URL", c.CompareBaseURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.GroupSize < 1 || c.GroupSize > 50 {
		errs = append(errs, fmt.Errorf("GROUP_SIZE must be between 1 and 50, got %d", c.GroupSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CompareEnabled reports whether the practice proxy has a service to call.
func (c *Config) CompareEnabled() bool {
	return c.CompareBaseURL != ""
}

// compareBaseURL reads COMPARE_BASE_URL. Unset selects the local service;
// set to "" or "off" disables the proxy.
func compareBaseURL() string {
	value, ok := os.LookupEnv("COMPARE_BASE_URL")
	if !ok {
		return "http://localhost:5001/api"
	}
	if value = strings.TrimSpace(value); strings.EqualFold(value, "off") {
		return ""
	}
	return value
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return fmt.Errorf("%s must be a valid URL, got %q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, raw)
	}
	return nil
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads an environment variable as a time.Duration ("10s", "1m").
// Unparseable values yield 0 so Validate reports them.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// getEnvList reads a comma-separated list, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
