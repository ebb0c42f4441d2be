// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server, migrate, seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SessionTTL is the session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionMaxPerIdentity caps live sessions per identity; the oldest by
	// last activity are evicted when the cap is reached. Default 5.
	SessionMaxPerIdentity int `mapstructure:"SESSION_MAX_PER_IDENTITY"`
	// SessionStrictIP controls the IP-drift policy on session validation.
	// false: log + audit only (default). true: destroy the session and reject.
	SessionStrictIP bool `mapstructure:"SESSION_STRICT_IP"`
	// ResetTokenTTL is the password-reset token lifetime (e.g. "1h").
	ResetTokenTTL string `mapstructure:"RESET_TOKEN_TTL"`
	// RateLimitWindow is the trailing window for login throttling (e.g. "1h").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`
	// RateLimitMaxAttempts is the attempt threshold within the window. Default 5.
	RateLimitMaxAttempts int `mapstructure:"RATE_LIMIT_MAX_ATTEMPTS"`
	// SweepInterval is how often the background sweeper prunes expired
	// sessions, reset tokens, and stale rate-limit rows (e.g. "10m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// CookieDomain scopes the session cookie; empty means host-only.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// CookieSecure forces the Secure attribute on the session cookie. Set true
	// whenever the app is served over TLS (directly or behind a terminating proxy).
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Audit pipeline (optional). When Kafka brokers are set, audit events are
	// also emitted to Kafka for the worker to forward.
	// AuditKafkaBrokers is a comma-separated list of broker addresses.
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events (default visitgate-audit).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit forwarder worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes audit events to.
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC endpoint for telemetry; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for the OTLP exporter regardless of scheme.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_MAX_PER_IDENTITY", 5)
	v.SetDefault("SESSION_STRICT_IP", false)
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")
	v.SetDefault("RATE_LIMIT_MAX_ATTEMPTS", 5)
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "visitgate-audit")
	v.SetDefault("KAFKA_GROUP_ID", "visitgate-audit-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.SessionMaxPerIdentity <= 0 {
		return nil, errors.New("config: SESSION_MAX_PER_IDENTITY must be positive")
	}
	if cfg.RateLimitMaxAttempts <= 0 {
		return nil, errors.New("config: RATE_LIMIT_MAX_ATTEMPTS must be positive")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ResetTokenTTLDuration parses ResetTokenTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ResetTokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.ResetTokenTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RateLimitWindowDuration parses RateLimitWindow as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) RateLimitWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SweepIntervalDuration parses SweepInterval as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit pipeline is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
