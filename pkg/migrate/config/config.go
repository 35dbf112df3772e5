package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Port:              "8080",
		Environment:       "development",
		LogLevel:          "info",
		LogFormat:         "text",
		DBSchema:          "migrate",
		PublicStorageURL:  "memory://",
		PrivateStorageURL: "memory://",
		FetchTimeout:      30 * time.Second,
		FetchRetries:      3,
		MaxUploadBytes:    32 << 20,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Config represents configuration for the migration service
type Config struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error
	LogFormat   string // text, json

	// Database configuration. Empty or "memory" selects the in-memory store.
	DatabaseURL string
	DBSchema    string // Postgres schema to use (default: migrate)

	// Storage URLs for the public (assets) and private (uploads) schemes:
	// "memory://", "file:///path" or "s3://bucket/prefix?region=...".
	PublicStorageURL  string
	PrivateStorageURL string
	S3                S3Config

	// Asset options
	SourceDir string // prepended to asset URIs to locate the source
	BaseURI   string // optional host prefix accepted in inline image sources

	FetchTimeout   time.Duration
	FetchRetries   uint64
	MaxUploadBytes int64
}

// S3Config holds credentials and endpoint settings shared by s3:// storage URLs
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// DatabaseType returns "memory" or "postgres" based on DatabaseURL.
func (c *Config) DatabaseType() string {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		return "memory"
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return "postgres"
	default:
		return ""
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType() == "" {
		return fmt.Errorf("unsupported database_url format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}

	for name, raw := range map[string]string{"public": c.PublicStorageURL, "private": c.PrivateStorageURL} {
		if _, err := parseStorageURL(raw); err != nil {
			return fmt.Errorf("invalid %s storage url: %w", name, err)
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}

	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}

	return nil
}
