package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

// Repository implements migrate.EntityStore using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	files       map[int64]*migrate.FileRecord
	filesByURI  map[string]int64
	media       map[int64]*migrate.MediaRecord
	sources     map[string]*migrate.MigrationSource
	nextFileID  int64
	nextMediaID int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		files:      make(map[int64]*migrate.FileRecord),
		filesByURI: make(map[string]int64),
		media:      make(map[int64]*migrate.MediaRecord),
		sources:    make(map[string]*migrate.MigrationSource),
	}
}

// File operations

func (r *Repository) FindFileByURI(ctx context.Context, uri string) (*migrate.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.filesByURI[uri]
	if !exists {
		return nil, migrate.ErrFileNotFound
	}

	fileCopy := *r.files[id]
	return &fileCopy, nil
}

// CreateFile assigns an ID to file. When a record with the same URI already
// exists, file is populated from it instead.
func (r *Repository) CreateFile(ctx context.Context, file *migrate.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.filesByURI[file.URI]; exists {
		existing := r.files[id]
		existing.Permanent = existing.Permanent || file.Permanent
		existing.UpdatedAt = file.UpdatedAt
		*file = *existing
		return nil
	}

	r.nextFileID++
	file.ID = r.nextFileID
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
		file.UpdatedAt = file.CreatedAt
	}

	fileCopy := *file
	r.files[file.ID] = &fileCopy
	r.filesByURI[file.URI] = file.ID
	return nil
}

func (r *Repository) SaveFile(ctx context.Context, file *migrate.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.files[file.ID]
	if !exists {
		return migrate.ErrFileNotFound
	}
	if existing.URI != file.URI {
		if _, taken := r.filesByURI[file.URI]; taken {
			return fmt.Errorf("file with uri %s already exists", file.URI)
		}
		delete(r.filesByURI, existing.URI)
		r.filesByURI[file.URI] = file.ID
	}

	fileCopy := *file
	r.files[file.ID] = &fileCopy
	return nil
}

// Media operations

func (r *Repository) FindMedia(ctx context.Context, bundle, language string, fileID int64) (*migrate.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *migrate.MediaRecord
	for _, m := range r.media {
		if m.Bundle != bundle || m.Language != language || m.FileID != fileID {
			continue
		}
		if found == nil || m.ID > found.ID {
			found = m
		}
	}
	if found == nil {
		return nil, migrate.ErrMediaNotFound
	}

	mediaCopy := *found
	return &mediaCopy, nil
}

func (r *Repository) GetMedia(ctx context.Context, id int64) (*migrate.MediaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.media[id]
	if !exists {
		return nil, migrate.ErrMediaNotFound
	}

	mediaCopy := *m
	return &mediaCopy, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *migrate.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[media.FileID]; !exists {
		return fmt.Errorf("referenced file %d not found", media.FileID)
	}

	r.nextMediaID++
	media.ID = r.nextMediaID
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now().UTC()
		media.UpdatedAt = media.CreatedAt
	}

	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	return nil
}

func (r *Repository) SaveMedia(ctx context.Context, media *migrate.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[media.ID]; !exists {
		return migrate.ErrMediaNotFound
	}

	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	return nil
}

// Migration source operations

func (r *Repository) GetMigrationSource(ctx context.Context, id string) (*migrate.MigrationSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.sources[id]
	if !exists {
		return nil, migrate.ErrMigrationSourceNotFound
	}

	sourceCopy := *source
	return &sourceCopy, nil
}

func (r *Repository) SetMigrationSource(ctx context.Context, source *migrate.MigrationSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if source.UpdatedAt.IsZero() {
		source.UpdatedAt = time.Now().UTC()
	}
	sourceCopy := *source
	r.sources[source.ID] = &sourceCopy
	return nil
}

func (r *Repository) ListMigrationSources(ctx context.Context) ([]*migrate.MigrationSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*migrate.MigrationSource, 0, len(r.sources))
	for _, source := range r.sources {
		sourceCopy := *source
		result = append(result, &sourceCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Counts returns the number of stored file and media records.
func (r *Repository) Counts() (files, media int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files), len(r.media)
}
