package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetConfig configures a Materializer.
type AssetConfig struct {
	// Bundle is the media bundle created for materialized assets. An empty
	// bundle turns Materialize into a no-op.
	Bundle string
	// SourceDir is prepended to the asset URI to locate the source.
	SourceDir string
	// Schema is prepended to the asset URI to build the destination.
	Schema string
	// OwnerID owns newly created file and media records.
	OwnerID int64
}

func (c AssetConfig) withDefaults() AssetConfig {
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.OwnerID == 0 {
		c.OwnerID = DefaultOwnerID
	}
	return c
}

// Materializer ensures a referenced asset exists in a destination store and
// is wrapped by a published media record.
type Materializer struct {
	config  AssetConfig
	store   EntityStore
	fetcher Fetcher
	sink    MessageSink
	logger  *slog.Logger
}

// Option represents a functional option shared by Materializer and Rewriter
type Option func(*options)

type options struct {
	store   EntityStore
	fetcher Fetcher
	sink    MessageSink
	logger  *slog.Logger
	embed   EmbedConfig
	baseURI string
}

// WithEntityStore sets the entity store
func WithEntityStore(store EntityStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithFetcher sets the fetcher used to copy assets
func WithFetcher(fetcher Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// WithMessageSink sets the row message sink
func WithMessageSink(sink MessageSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEmbedConfig overrides the embed markup attributes produced by a Rewriter
func WithEmbedConfig(cfg EmbedConfig) Option {
	return func(o *options) {
		o.embed = cfg
	}
}

// WithBaseURI sets the optional prefix accepted before "/" in image sources
func WithBaseURI(baseURI string) Option {
	return func(o *options) {
		o.baseURI = baseURI
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.sink == nil {
		o.sink = NewRowMessageSink()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// NewMaterializer creates a Materializer. An entity store and a fetcher are required.
func NewMaterializer(config AssetConfig, opts ...Option) (*Materializer, error) {
	o := buildOptions(opts)
	if o.store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	if o.fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	return &Materializer{
		config:  config.withDefaults(),
		store:   o.store,
		fetcher: o.fetcher,
		sink:    o.sink,
		logger:  o.logger.With("component", "asset_creator"),
	}, nil
}

// Config returns the effective configuration.
func (m *Materializer) Config() AssetConfig {
	return m.config
}

// WithBundle returns a copy of m that creates media of the given bundle.
func (m *Materializer) WithBundle(bundle string) *Materializer {
	c := *m
	c.config.Bundle = bundle
	return &c
}

// Materialize fetches the referenced asset and returns the media record that
// wraps it.
//
// A nil record with a nil error means nothing was materialized: either the
// reference or bundle was empty, or the fetch failed and was reported on the
// row. Errors are only returned for entity store failures.
func (m *Materializer) Materialize(ctx context.Context, row *Row, ref AssetReference) (*MediaRecord, error) {
	if m.config.Bundle == "" || (ref.URI == "" && ref.DisplayName == "") {
		return nil, nil
	}
	if ref.URI == "" {
		m.sink.SaveMessage(ctx, row, MessageError, "No file URI provided")
		return nil, nil
	}

	uri := strings.TrimPrefix(ref.URI, "/")
	source := m.config.SourceDir + uri
	destination := m.config.Schema + uri

	fetched, err := m.fetcher.Fetch(ctx, source, destination)
	if err != nil {
		m.sink.SaveMessage(ctx, row, MessageError, fetchMessage(err))
		m.logger.Warn("Unable to retrieve file", "asset", source, "error", fetchMessage(err))
		return nil, nil
	}

	file, err := m.ensureFile(ctx, fetched)
	if err != nil {
		return nil, err
	}

	return m.ensureMedia(ctx, row.Language(), ref.DisplayName, file)
}

func fetchMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}

func (m *Materializer) ensureFile(ctx context.Context, fetched *FetchedAsset) (*FileRecord, error) {
	file, err := m.store.FindFileByURI(ctx, fetched.URI)
	switch {
	case err == nil:
		file.Permanent = true
		file.UpdatedAt = time.Now().UTC()
		if err := m.store.SaveFile(ctx, file); err != nil {
			return nil, &MaterializeError{URI: fetched.URI, Op: "save_file", Err: err}
		}
		return file, nil
	case !errors.Is(err, ErrFileNotFound):
		return nil, &MaterializeError{URI: fetched.URI, Op: "find_file", Err: err}
	}

	now := time.Now().UTC()
	file = &FileRecord{
		UUID:      uuid.New(),
		URI:       fetched.URI,
		OwnerID:   m.config.OwnerID,
		MimeType:  fetched.MimeType,
		FileName:  BaseName(fetched.URI),
		Size:      fetched.Size,
		Permanent: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateFile(ctx, file); err != nil {
		return nil, &MaterializeError{URI: fetched.URI, Op: "create_file", Err: err}
	}
	return file, nil
}

func (m *Materializer) ensureMedia(ctx context.Context, language, name string, file *FileRecord) (*MediaRecord, error) {
	media, err := m.store.FindMedia(ctx, m.config.Bundle, language, file.ID)
	switch {
	case err == nil:
		media.Published = true
		media.UpdatedAt = time.Now().UTC()
		if err := m.store.SaveMedia(ctx, media); err != nil {
			return nil, &MaterializeError{URI: file.URI, Op: "save_media", Err: err}
		}
		return media, nil
	case !errors.Is(err, ErrMediaNotFound):
		return nil, &MaterializeError{URI: file.URI, Op: "find_media", Err: err}
	}

	now := time.Now().UTC()
	media = &MediaRecord{
		UUID:      uuid.New(),
		Bundle:    m.config.Bundle,
		Language:  language,
		Name:      name,
		FileID:    file.ID,
		OwnerID:   m.config.OwnerID,
		Published: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateMedia(ctx, media); err != nil {
		return nil, &MaterializeError{URI: file.URI, Op: "create_media", Err: err}
	}
	return media, nil
}
