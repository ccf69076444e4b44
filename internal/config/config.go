// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Tracing
	OTLPEndpoint string // tracing disabled when empty

	// HTTP surface
	RateLimitRPM int
	CORSOrigins  []string

	// Scoring
	BusinessHoursStart int
	BusinessHoursEnd   int
	BusinessTimezone   string // IANA zone name, "Local" for the host zone
	HistoryCapacity    int
	PolicyFile         string // optional YAML threshold overrides

	// Reputation snapshots
	SnapshotInterval time.Duration
}

const (
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultRateLimitRPM       = 600
	DefaultCORSOrigins        = "*"
	DefaultBusinessHoursStart = 9
	DefaultBusinessHoursEnd   = 17
	DefaultBusinessTimezone   = "Local"
	DefaultHistoryCapacity    = 100
	DefaultSnapshotInterval   = 5 * time.Minute
)

var (
	ErrInvalidBusinessHours = errors.New("config: business hours must satisfy 0 <= start < end <= 24")
	ErrInvalidCapacity      = errors.New("config: HISTORY_CAPACITY must be positive")
	ErrInvalidRateLimit     = errors.New("config: RATE_LIMIT_RPM must be positive")
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", DefaultCORSOrigins)),
		BusinessHoursStart: int(getEnvInt64("BUSINESS_HOURS_START", DefaultBusinessHoursStart)),
		BusinessHoursEnd:   int(getEnvInt64("BUSINESS_HOURS_END", DefaultBusinessHoursEnd)),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", DefaultBusinessTimezone),
		HistoryCapacity:    int(getEnvInt64("HISTORY_CAPACITY", DefaultHistoryCapacity)),
		PolicyFile:         os.Getenv("POLICY_FILE"),
		SnapshotInterval:   getEnvDuration("SNAPSHOT_INTERVAL", DefaultSnapshotInterval),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.BusinessHoursStart < 0 || c.BusinessHoursEnd > 24 || c.BusinessHoursStart >= c.BusinessHoursEnd {
		return ErrInvalidBusinessHours
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: BUSINESS_TIMEZONE %q: %w", c.BusinessTimezone, err)
	}
	if c.HistoryCapacity <= 0 {
		return ErrInvalidCapacity
	}
	if c.RateLimitRPM <= 0 {
		return ErrInvalidRateLimit
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// Location resolves the business timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.BusinessTimezone == "" || strings.EqualFold(c.BusinessTimezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.BusinessTimezone)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
