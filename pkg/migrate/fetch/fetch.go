// Package fetch copies migration assets from local paths, HTTP URLs or
// registered blob stores into a destination blob store.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

const sniffLen = 512

// Config controls remote fetches.
type Config struct {
	Timeout      time.Duration // per request
	Retries      uint64        // additional attempts after the first
	RetryBackoff time.Duration // base of the exponential backoff
	UserAgent    string
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		Retries:      3,
		RetryBackoff: 200 * time.Millisecond,
		UserAgent:    "simple-content-migrate",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}

// Fetcher implements migrate.Fetcher.
type Fetcher struct {
	stores     map[string]migrate.BlobStore
	fs         afero.Fs
	config     Config
	httpClient *http.Client
	client     *resty.Client
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConfig sets the fetch configuration.
func WithConfig(config Config) Option {
	return func(f *Fetcher) {
		f.config = config
	}
}

// WithFs sets the filesystem local sources are read from.
func WithFs(fs afero.Fs) Option {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithHTTPClient sets the underlying HTTP client for remote sources.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher writing into stores, keyed by URI scheme.
func New(stores map[string]migrate.BlobStore, opts ...Option) (*Fetcher, error) {
	if len(stores) == 0 {
		return nil, errors.New("at least one blob store is required")
	}

	f := &Fetcher{
		stores: make(map[string]migrate.BlobStore, len(stores)),
		config: DefaultConfig(),
	}
	for scheme, store := range stores {
		if store == nil {
			return nil, fmt.Errorf("blob store for scheme %q is nil", scheme)
		}
		f.stores[strings.ToLower(scheme)] = store
	}
	for _, opt := range opts {
		opt(f)
	}

	f.config = f.config.withDefaults()
	if f.fs == nil {
		f.fs = afero.NewOsFs()
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.logger = f.logger.With("component", "fetcher")

	if f.httpClient != nil {
		f.client = resty.NewWithClient(f.httpClient)
	} else {
		f.client = resty.New()
	}
	f.client.
		SetTimeout(f.config.Timeout).
		SetHeader("User-Agent", f.config.UserAgent)

	return f, nil
}

// Fetch copies source into the blob store named by destination's scheme and
// returns the normalized destination URI with the sniffed MIME type.
func (f *Fetcher) Fetch(ctx context.Context, source, destination string) (*migrate.FetchedAsset, error) {
	fail := func(err error) (*migrate.FetchedAsset, error) {
		return nil, &migrate.FetchError{Source: source, Destination: destination, Err: err}
	}

	scheme, key, err := migrate.SplitURI(destination)
	if err != nil {
		return fail(err)
	}
	store, ok := f.stores[scheme]
	if !ok {
		return fail(fmt.Errorf("%w: %s", migrate.ErrStoreNotFound, scheme))
	}

	data, err := f.read(ctx, source)
	if err != nil {
		return fail(err)
	}

	mimeType := detectMIME(data)
	err = store.UploadWithParams(ctx, bytes.NewReader(data), migrate.UploadParams{
		ObjectKey: key,
		MimeType:  mimeType,
	})
	if err != nil {
		return fail(&migrate.StorageError{Backend: scheme, Key: key, Op: "upload", Err: err})
	}

	uri := migrate.JoinURI(scheme, key)
	f.logger.Debug("Fetched asset", "source", source, "destination", uri, "size", len(data))

	return &migrate.FetchedAsset{
		URI:      uri,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}

func (f *Fetcher) read(ctx context.Context, source string) ([]byte, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return f.readHTTP(ctx, source)
	}

	if scheme, key, err := migrate.SplitURI(source); err == nil {
		if store, ok := f.stores[scheme]; ok {
			return readStore(ctx, store, key, source)
		}
	}

	data, err := afero.ReadFile(f.fs, source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file %q does not exist", source)
		}
		return nil, fmt.Errorf("failed to read %q: %w", source, err)
	}
	return data, nil
}

func readStore(ctx context.Context, store migrate.BlobStore, key, source string) ([]byte, error) {
	reader, err := store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, migrate.ErrObjectNotFound) {
			return nil, fmt.Errorf("file %q does not exist", source)
		}
		return nil, fmt.Errorf("failed to download %q: %w", source, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", source, err)
	}
	return data, nil
}

func (f *Fetcher) readHTTP(ctx context.Context, source string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(f.config.Retries, retry.NewExponential(f.config.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := f.client.R().SetContext(ctx).Get(source)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Debug("Retrying asset download", "source", source, "error", err)
			return retry.RetryableError(fmt.Errorf("request to %s failed: %w", source, err))
		}

		code := resp.StatusCode()
		switch {
		case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
			f.logger.Debug("Retrying asset download", "source", source, "status", code)
			return retry.RetryableError(fmt.Errorf("%s returned HTTP %d", source, code))
		case code >= http.StatusBadRequest:
			return fmt.Errorf("%s returned HTTP %d", source, code)
		}

		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func detectMIME(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	mt := http.DetectContentType(head)
	if mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(head).String()
}
