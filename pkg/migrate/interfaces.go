package migrate

import (
	"context"
	"io"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Fetcher copies or downloads an asset from source to destination.
//
// Implementations must return a *FetchError when the asset cannot be
// retrieved; the returned FetchedAsset.URI is the stored URI that file
// records are keyed by.
type Fetcher interface {
	Fetch(ctx context.Context, source, destination string) (*FetchedAsset, error)
}

// EntityStore defines persistence for file, media and migration source records.
type EntityStore interface {
	// File operations
	FindFileByURI(ctx context.Context, uri string) (*FileRecord, error)
	CreateFile(ctx context.Context, file *FileRecord) error
	SaveFile(ctx context.Context, file *FileRecord) error

	// Media operations
	// FindMedia returns the most recently created media matching all three keys.
	FindMedia(ctx context.Context, bundle, language string, fileID int64) (*MediaRecord, error)
	GetMedia(ctx context.Context, id int64) (*MediaRecord, error)
	CreateMedia(ctx context.Context, media *MediaRecord) error
	SaveMedia(ctx context.Context, media *MediaRecord) error

	// Migration source operations
	GetMigrationSource(ctx context.Context, id string) (*MigrationSource, error)
	SetMigrationSource(ctx context.Context, source *MigrationSource) error
	ListMigrationSources(ctx context.Context) ([]*MigrationSource, error)
}

// MessageSink receives non-fatal, row-scoped diagnostics.
type MessageSink interface {
	SaveMessage(ctx context.Context, row *Row, level MessageLevel, message string)
}
