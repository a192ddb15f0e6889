// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage. DATABASE_URL is required for the postgres driver.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Postgres pool sizing
	DatabaseMaxConns        int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseMinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	DatabaseMaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// Cache (Redis). Empty runs rate limits and locks in process.
	RedisURL          string        `env:"REDIS_URL"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisPoolTimeout  time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Waitlist submission. The lock must outlive the precheck and the insert.
	WaitlistStoreTimeout time.Duration `env:"WAITLIST_STORE_TIMEOUT" envDefault:"5s"`
	WaitlistLockTTL      time.Duration `env:"WAITLIST_LOCK_TTL" envDefault:"15s"`

	// Rate limiting for waitlist submissions, per client IP
	RateLimitWaitlistEnabled bool    `env:"RATE_LIMIT_WAITLIST_ENABLED" envDefault:"true"`
	RateLimitWaitlistRPS     float64 `env:"RATE_LIMIT_WAITLIST_RPS" envDefault:"0.2"`
	RateLimitWaitlistBurst   int     `env:"RATE_LIMIT_WAITLIST_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://guau.pro,https://www.guau.pro")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 64KB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`

	// Welcome email. Empty SMTP_HOST disables it.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"Guau Pro <hola@guau.pro>"`

	// ROI memo size; 0 disables memoization.
	ROICacheSize int `env:"ROI_CACHE_SIZE" envDefault:"1024"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UseMemoryStore reports whether leads are kept in process memory.
func (c *Config) UseMemoryStore() bool {
	return c.StoreDriver == StoreDriverMemory
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}

	if c.RateLimitWaitlistEnabled && (c.RateLimitWaitlistRPS <= 0 || c.RateLimitWaitlistBurst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_WAITLIST_RPS must be > 0 and RATE_LIMIT_WAITLIST_BURST >= 1"))
	}
	if c.WaitlistStoreTimeout <= 0 {
		errs = append(errs, errors.New("WAITLIST_STORE_TIMEOUT must be positive"))
	}
	if c.WaitlistLockTTL <= 2*c.WaitlistStoreTimeout {
		errs = append(errs, fmt.Errorf("WAITLIST_LOCK_TTL (%s) must exceed twice WAITLIST_STORE_TIMEOUT (%s)",
			c.WaitlistLockTTL, c.WaitlistStoreTimeout))
	}
	if c.DatabaseMaxConns < 1 || c.DatabaseMinConns < 0 || c.DatabaseMinConns > c.DatabaseMaxConns {
		errs = append(errs, errors.New("DATABASE_MIN_CONNS must be between 0 and DATABASE_MAX_CONNS, and DATABASE_MAX_CONNS >= 1"))
	}
	if c.RedisPoolSize < 1 || c.RedisMinIdleConns < 0 {
		errs = append(errs, errors.New("REDIS_POOL_SIZE must be >= 1 and REDIS_MIN_IDLE_CONNS >= 0"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.ROICacheSize < 0 {
		errs = append(errs, errors.New("ROI_CACHE_SIZE must not be negative"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
