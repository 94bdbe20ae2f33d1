package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the execution engine
	Config struct {
		// API Server
		APIHost       string
		APIPort       int
		LogLevel      string
		WebhookSecret string

		// Record store
		RecordStore RedisConfig

		// Mail
		SMTPAddr string
		MailFrom string

		// Engine
		MaxIterations   int
		HTTPTimeout     time.Duration
		ShutdownTimeout time.Duration
	}

	// RedisConfig holds connection settings for the tenant record store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "hexaflow"
	DefaultRedisDB       = 0

	DefaultMaxIterations   = 100
	MaxMaxIterations       = 10_000
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultSMTPAddr = "localhost:25"
	DefaultMailFrom = "no-reply@hexaflow.local"
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")
	ErrInvalidHTTPTimeout   = errors.New("http timeout must be positive")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, record store, and engine settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		RecordStore: RedisConfig{
			Addr:   DefaultRedisEndpoint,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		SMTPAddr:        DefaultSMTPAddr,
		MailFrom:        DefaultMailFrom,
		MaxIterations:   DefaultMaxIterations,
		HTTPTimeout:     DefaultHTTPTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		c.WebhookSecret = secret
	}
	if addr := os.Getenv("RECORDS_REDIS_ADDR"); addr != "" {
		c.RecordStore.Addr = addr
	}
	if password := os.Getenv("RECORDS_REDIS_PASSWORD"); password != "" {
		c.RecordStore.Password = password
	}
	if prefix := os.Getenv("RECORDS_REDIS_PREFIX"); prefix != "" {
		c.RecordStore.Prefix = prefix
	}
	if smtpAddr := os.Getenv("SMTP_ADDR"); smtpAddr != "" {
		c.SMTPAddr = smtpAddr
	}
	if from := os.Getenv("MAIL_FROM"); from != "" {
		c.MailFrom = from
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RECORDS_REDIS_DB", &c.RecordStore.DB, -1, 15,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_ITERATIONS", &c.MaxIterations, 0, MaxMaxIterations,
	); err != nil {
		return err
	}

	if s := os.Getenv("HTTP_TIMEOUT_MS"); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid HTTP_TIMEOUT_MS: %q", s)
		}
		c.HTTPTimeout = time.Duration(ms) * time.Millisecond
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.MaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}
	if c.HTTPTimeout <= 0 {
		return ErrInvalidHTTPTimeout
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
