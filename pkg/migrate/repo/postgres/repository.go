package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements migrate.EntityStore using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "file") {
				return fmt.Errorf("file already exists")
			}
			if strings.Contains(pgErr.ConstraintName, "media") {
				return fmt.Errorf("media already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const fileColumns = `id, uuid, uri, owner_id, mime_type, file_name, file_size, permanent, created_at, updated_at`

func scanFile(row pgx.Row) (*migrate.FileRecord, error) {
	var f migrate.FileRecord
	err := row.Scan(&f.ID, &f.UUID, &f.URI, &f.OwnerID, &f.MimeType, &f.FileName,
		&f.Size, &f.Permanent, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// File operations

func (r *Repository) FindFileByURI(ctx context.Context, uri string) (*migrate.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM file_managed WHERE uri = $1 ORDER BY id LIMIT 1`

	file, err := scanFile(r.db.QueryRow(ctx, query, uri))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, migrate.ErrFileNotFound
		}
		return nil, r.handlePostgresError("find file", err)
	}
	return file, nil
}

// CreateFile inserts file, or marks the existing record with the same URI
// permanent. file is populated from the stored row either way.
func (r *Repository) CreateFile(ctx context.Context, file *migrate.FileRecord) error {
	query := `
		INSERT INTO file_managed (
			uuid, uri, owner_id, mime_type, file_name, file_size, permanent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uri) DO UPDATE SET
			permanent = file_managed.permanent OR EXCLUDED.permanent,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + fileColumns

	stored, err := scanFile(r.db.QueryRow(ctx, query,
		file.UUID, file.URI, file.OwnerID, file.MimeType, file.FileName,
		file.Size, file.Permanent, file.CreatedAt, file.UpdatedAt))
	if err != nil {
		return r.handlePostgresError("create file", err)
	}

	*file = *stored
	return nil
}

func (r *Repository) SaveFile(ctx context.Context, file *migrate.FileRecord) error {
	query := `
		UPDATE file_managed SET
			uri = $2, owner_id = $3, mime_type = $4, file_name = $5,
			file_size = $6, permanent = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		file.ID, file.URI, file.OwnerID, file.MimeType, file.FileName,
		file.Size, file.Permanent, file.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("save file", err)
	}
	if tag.RowsAffected() == 0 {
		return migrate.ErrFileNotFound
	}
	return nil
}

// Media operations

const mediaColumns = `id, uuid, bundle, langcode, name, file_id, owner_id, published, created_at, updated_at`

func scanMedia(row pgx.Row) (*migrate.MediaRecord, error) {
	var m migrate.MediaRecord
	err := row.Scan(&m.ID, &m.UUID, &m.Bundle, &m.Language, &m.Name, &m.FileID,
		&m.OwnerID, &m.Published, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) FindMedia(ctx context.Context, bundle, language string, fileID int64) (*migrate.MediaRecord, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media
		WHERE bundle = $1 AND langcode = $2 AND file_id = $3
		ORDER BY id DESC LIMIT 1`

	media, err := scanMedia(r.db.QueryRow(ctx, query, bundle, language, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, migrate.ErrMediaNotFound
		}
		return nil, r.handlePostgresError("find media", err)
	}
	return media, nil
}

func (r *Repository) GetMedia(ctx context.Context, id int64) (*migrate.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	media, err := scanMedia(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, migrate.ErrMediaNotFound
		}
		return nil, r.handlePostgresError("get media", err)
	}
	return media, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *migrate.MediaRecord) error {
	query := `
		INSERT INTO media (
			uuid, bundle, langcode, name, file_id, owner_id, published, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		media.UUID, media.Bundle, media.Language, media.Name, media.FileID,
		media.OwnerID, media.Published, media.CreatedAt, media.UpdatedAt).Scan(&media.ID)
	if err != nil {
		return r.handlePostgresError("create media", err)
	}
	return nil
}

func (r *Repository) SaveMedia(ctx context.Context, media *migrate.MediaRecord) error {
	query := `
		UPDATE media SET
			bundle = $2, langcode = $3, name = $4, file_id = $5,
			owner_id = $6, published = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		media.ID, media.Bundle, media.Language, media.Name, media.FileID,
		media.OwnerID, media.Published, media.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("save media", err)
	}
	if tag.RowsAffected() == 0 {
		return migrate.ErrMediaNotFound
	}
	return nil
}

// Migration source operations

func (r *Repository) GetMigrationSource(ctx context.Context, id string) (*migrate.MigrationSource, error) {
	query := `SELECT id, path, updated_at FROM migration_source WHERE id = $1`

	var source migrate.MigrationSource
	err := r.db.QueryRow(ctx, query, id).Scan(&source.ID, &source.Path, &source.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, migrate.ErrMigrationSourceNotFound
		}
		return nil, r.handlePostgresError("get migration source", err)
	}
	return &source, nil
}

func (r *Repository) SetMigrationSource(ctx context.Context, source *migrate.MigrationSource) error {
	query := `
		INSERT INTO migration_source (id, path, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET path = EXCLUDED.path, updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, source.ID, source.Path).Scan(&source.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("set migration source", err)
	}
	return nil
}

func (r *Repository) ListMigrationSources(ctx context.Context) ([]*migrate.MigrationSource, error) {
	query := `SELECT id, path, updated_at FROM migration_source ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list migration sources", err)
	}
	defer rows.Close()

	var sources []*migrate.MigrationSource
	for rows.Next() {
		var source migrate.MigrationSource
		if err := rows.Scan(&source.ID, &source.Path, &source.UpdatedAt); err != nil {
			return nil, r.handlePostgresError("list migration sources", err)
		}
		sources = append(sources, &source)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list migration sources", err)
	}
	return sources, nil
}
