package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig maps environment variables onto Config. Variables that are not
// set keep the value already present in the Config.
type envConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogFormat   string `env:"LOG_FORMAT"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"MIGRATE_DB_SCHEMA"`

	PublicStorageURL  string `env:"PUBLIC_STORAGE_URL"`
	PrivateStorageURL string `env:"PRIVATE_STORAGE_URL"`

	S3Region          string `env:"AWS_REGION"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"AWS_S3_ENDPOINT"`

	SourceDir string `env:"SOURCE_DIR"`
	BaseURI   string `env:"BASE_URI"`

	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT"`
	FetchRetries   uint64        `env:"FETCH_RETRIES"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES"`
}

// WithEnv applies environment variable overrides.
//
//	PORT, ENVIRONMENT, LOG_LEVEL, LOG_FORMAT
//	DATABASE_URL        - "memory" (default) or "postgresql://..."
//	MIGRATE_DB_SCHEMA   - Postgres schema (default: migrate)
//	PUBLIC_STORAGE_URL  - "memory://", "file:///path" or "s3://bucket/prefix"
//	PRIVATE_STORAGE_URL - same formats, holds uploaded CSV sources
//	AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_S3_ENDPOINT
//	SOURCE_DIR, BASE_URI
//	FETCH_TIMEOUT (e.g. "30s"), FETCH_RETRIES, MAX_UPLOAD_BYTES
func WithEnv() Option {
	return func(c *Config) error {
		env := envConfig{
			Port:              c.Port,
			Environment:       c.Environment,
			LogLevel:          c.LogLevel,
			LogFormat:         c.LogFormat,
			DatabaseURL:       c.DatabaseURL,
			DBSchema:          c.DBSchema,
			PublicStorageURL:  c.PublicStorageURL,
			PrivateStorageURL: c.PrivateStorageURL,
			S3Region:          c.S3.Region,
			S3AccessKeyID:     c.S3.AccessKeyID,
			S3SecretAccessKey: c.S3.SecretAccessKey,
			S3Endpoint:        c.S3.Endpoint,
			SourceDir:         c.SourceDir,
			BaseURI:           c.BaseURI,
			FetchTimeout:      c.FetchTimeout,
			FetchRetries:      c.FetchRetries,
			MaxUploadBytes:    c.MaxUploadBytes,
		}

		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.LogLevel = env.LogLevel
		c.LogFormat = env.LogFormat
		c.DatabaseURL = env.DatabaseURL
		c.DBSchema = env.DBSchema
		c.PublicStorageURL = env.PublicStorageURL
		c.PrivateStorageURL = env.PrivateStorageURL
		c.S3 = S3Config{
			Region:          env.S3Region,
			AccessKeyID:     env.S3AccessKeyID,
			SecretAccessKey: env.S3SecretAccessKey,
			Endpoint:        env.S3Endpoint,
		}
		c.SourceDir = env.SourceDir
		c.BaseURI = env.BaseURI
		c.FetchTimeout = env.FetchTimeout
		c.FetchRetries = env.FetchRetries
		c.MaxUploadBytes = env.MaxUploadBytes
		return nil
	}
}
