package config

import "time"

// WithPort sets the HTTP listen port.
func WithPort(port string) Option {
	return func(c *Config) error {
		c.Port = port
		return nil
	}
}

// WithDatabase sets the database URL and schema.
func WithDatabase(url, schema string) Option {
	return func(c *Config) error {
		c.DatabaseURL = url
		if schema != "" {
			c.DBSchema = schema
		}
		return nil
	}
}

// WithStorage sets the public and private storage URLs.
func WithStorage(publicURL, privateURL string) Option {
	return func(c *Config) error {
		c.PublicStorageURL = publicURL
		c.PrivateStorageURL = privateURL
		return nil
	}
}

// WithAssetSource sets the source directory and accepted base URI for assets.
func WithAssetSource(sourceDir, baseURI string) Option {
	return func(c *Config) error {
		c.SourceDir = sourceDir
		c.BaseURI = baseURI
		return nil
	}
}

// WithFetch sets the fetch timeout and retry count.
func WithFetch(timeout time.Duration, retries uint64) Option {
	return func(c *Config) error {
		c.FetchTimeout = timeout
		c.FetchRetries = retries
		return nil
	}
}

// WithLogging sets the log level and format.
func WithLogging(level, format string) Option {
	return func(c *Config) error {
		c.LogLevel = level
		c.LogFormat = format
		return nil
	}
}
