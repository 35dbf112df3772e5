// Package intake stores uploaded CSV sources and points migrations at them.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

var (
	// ErrInvalidExtension indicates an upload that is not a .csv file
	ErrInvalidExtension = errors.New("only files with the csv extension are allowed")

	// ErrUnknownMigration indicates an upload for a migration with no target
	ErrUnknownMigration = errors.New("unknown migration")

	// ErrMissingFile indicates an upload without a file name or content
	ErrMissingFile = errors.New("file is required")
)

// Target binds an upload key and form field to a migration.
type Target struct {
	Key         string `json:"key"`
	Field       string `json:"field"`
	MigrationID string `json:"migration_id"`
	Label       string `json:"label"`
}

// DefaultTargets returns the article and category targets.
func DefaultTargets() []Target {
	return []Target{
		{Key: "articles", Field: "article_file", MigrationID: "demo_articles", Label: "Demo article content data"},
		{Key: "categories", Field: "category_file", MigrationID: "demo_categories", Label: "Demo category data"},
	}
}

// UploadRequest is a single uploaded source file.
type UploadRequest struct {
	// MigrationID is a target key ("articles") or migration ID ("demo_articles").
	MigrationID string
	FileName    string
	Reader      io.Reader
}

// UploadResult describes a stored source file.
type UploadResult struct {
	MigrationID string `json:"migration_id"`
	URI         string `json:"uri"`
	Message     string `json:"message"`
}

// Service handles source uploads.
type Service struct {
	store     migrate.EntityStore
	blobs     migrate.BlobStore
	scheme    string
	directory string
	targets   []Target
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithScheme sets the URI scheme of the blob store uploads are written to.
func WithScheme(scheme string) Option {
	return func(s *Service) {
		s.scheme = scheme
	}
}

// WithDirectory sets the key prefix uploads are written under.
func WithDirectory(dir string) Option {
	return func(s *Service) {
		s.directory = dir
	}
}

// WithTargets replaces the upload targets.
func WithTargets(targets ...Target) Option {
	return func(s *Service) {
		s.targets = targets
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service writing files to blobs and source paths to store.
func New(store migrate.EntityStore, blobs migrate.BlobStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("entity store is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}

	s := &Service{
		store:     store,
		blobs:     blobs,
		scheme:    "private",
		directory: "uploaded_data",
		targets:   DefaultTargets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "intake")
	s.directory = strings.Trim(s.directory, "/")
	return s, nil
}

// Targets returns the configured upload targets.
func (s *Service) Targets() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Target looks up a target by key, form field or migration ID.
func (s *Service) Target(id string) (Target, bool) {
	for _, t := range s.targets {
		if t.Key == id || t.MigrationID == id || t.Field == id {
			return t, true
		}
	}
	return Target{}, false
}

// Upload stores the file, replacing any previous upload with the same name,
// and sets it as the migration's source path.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	target, name, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key := name
	if s.directory != "" {
		key = s.directory + "/" + name
	}
	err = s.blobs.UploadWithParams(ctx, req.Reader, migrate.UploadParams{
		ObjectKey: key,
		MimeType:  "text/csv",
	})
	if err != nil {
		return nil, &migrate.StorageError{Backend: s.scheme, Key: key, Op: "upload", Err: err}
	}

	uri := migrate.JoinURI(s.scheme, key)
	err = s.store.SetMigrationSource(ctx, &migrate.MigrationSource{
		ID:        target.MigrationID,
		Path:      uri,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set source path for %s: %w", target.MigrationID, err)
	}

	message := fmt.Sprintf("%s uploaded as %s.", target.Label, uri)
	s.logger.Info(message, "migration", target.MigrationID, "uri", uri)

	return &UploadResult{
		MigrationID: target.MigrationID,
		URI:         uri,
		Message:     message,
	}, nil
}

// Validate checks the target, file name and extension of req without
// storing anything.
func (s *Service) Validate(req UploadRequest) error {
	_, _, err := s.validate(req)
	return err
}

func (s *Service) validate(req UploadRequest) (Target, string, error) {
	target, ok := s.Target(req.MigrationID)
	if !ok {
		return Target{}, "", fmt.Errorf("%w: %s", ErrUnknownMigration, req.MigrationID)
	}

	name := baseName(req.FileName)
	if name == "" || req.Reader == nil {
		return Target{}, "", ErrMissingFile
	}
	if !strings.EqualFold(path.Ext(name), ".csv") {
		return Target{}, "", fmt.Errorf("%w: %s", ErrInvalidExtension, name)
	}
	return target, name, nil
}

// Stat returns metadata for an uploaded source URI.
func (s *Service) Stat(ctx context.Context, uri string) (*migrate.ObjectMeta, error) {
	scheme, key, err := migrate.SplitURI(uri)
	if err != nil {
		return nil, err
	}
	if scheme != s.scheme {
		return nil, fmt.Errorf("source %s is not in %s storage", uri, s.scheme)
	}
	meta, err := s.blobs.GetObjectMeta(ctx, key)
	if err != nil {
		return nil, &migrate.StorageError{Backend: s.scheme, Key: key, Op: "stat", Err: err}
	}
	return meta, nil
}

// baseName strips any client-supplied directories from name.
func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
