package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	"github.com/tendant/simple-content-migrate/pkg/migrate/repo/postgres"
)

var _ migrate.EntityStore = (*postgres.Repository)(nil)

// newTestRepository connects to TEST_DATABASE_URL, migrates a throwaway
// schema and drops it when the test finishes.
func newTestRepository(t *testing.T) *postgres.Repository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping database test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("migrate_test_%d", time.Now().UnixNano())

	admin, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, postgres.CreateSchema(ctx, admin, schema))

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)
	poolConfig.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		admin.Close()
	})

	require.NoError(t, postgres.Migrate(ctx, pool, nil))
	return postgres.NewWithPool(pool)
}

func newFile(uri string) *migrate.FileRecord {
	now := time.Now().UTC()
	return &migrate.FileRecord{
		UUID:      uuid.New(),
		URI:       uri,
		OwnerID:   1,
		MimeType:  "image/jpeg",
		FileName:  migrate.BaseName(uri),
		Size:      42,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresRepository_Files(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.FindFileByURI(ctx, "public://missing.jpg")
	assert.ErrorIs(t, err, migrate.ErrFileNotFound)

	file := newFile("public://images/a.jpg")
	require.NoError(t, repo.CreateFile(ctx, file))
	assert.NotZero(t, file.ID)
	assert.False(t, file.Permanent)

	dup := newFile("public://images/a.jpg")
	dup.Permanent = true
	require.NoError(t, repo.CreateFile(ctx, dup))
	assert.Equal(t, file.ID, dup.ID)
	assert.Equal(t, file.UUID, dup.UUID)
	assert.True(t, dup.Permanent)

	found, err := repo.FindFileByURI(ctx, "public://images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, file.ID, found.ID)

	found.MimeType = "image/png"
	require.NoError(t, repo.SaveFile(ctx, found))
	found, err = repo.FindFileByURI(ctx, "public://images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/png", found.MimeType)

	err = repo.SaveFile(ctx, &migrate.FileRecord{ID: 99999, URI: "public://nope", FileName: "nope"})
	assert.ErrorIs(t, err, migrate.ErrFileNotFound)
}

func TestPostgresRepository_Media(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	file := newFile("public://images/b.jpg")
	require.NoError(t, repo.CreateFile(ctx, file))

	now := time.Now().UTC()
	first := &migrate.MediaRecord{UUID: uuid.New(), Bundle: "image", Language: "en", FileID: file.ID, OwnerID: 1, CreatedAt: now, UpdatedAt: now}
	second := &migrate.MediaRecord{UUID: uuid.New(), Bundle: "image", Language: "en", FileID: file.ID, OwnerID: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateMedia(ctx, first))
	require.NoError(t, repo.CreateMedia(ctx, second))

	found, err := repo.FindMedia(ctx, "image", "en", file.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
	assert.Equal(t, second.UUID, found.UUID)

	found.Published = true
	require.NoError(t, repo.SaveMedia(ctx, found))
	got, err := repo.GetMedia(ctx, found.ID)
	require.NoError(t, err)
	assert.True(t, got.Published)

	_, err = repo.FindMedia(ctx, "image", "de", file.ID)
	assert.ErrorIs(t, err, migrate.ErrMediaNotFound)

	err = repo.CreateMedia(ctx, &migrate.MediaRecord{UUID: uuid.New(), Bundle: "image", Language: "en", FileID: 99999, CreatedAt: now, UpdatedAt: now})
	assert.Error(t, err)
}

func TestPostgresRepository_MigrationSources(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetMigrationSource(ctx, "demo_articles")
	assert.ErrorIs(t, err, migrate.ErrMigrationSourceNotFound)

	require.NoError(t, repo.SetMigrationSource(ctx, &migrate.MigrationSource{ID: "demo_articles", Path: "private://uploaded_data/a.csv"}))
	require.NoError(t, repo.SetMigrationSource(ctx, &migrate.MigrationSource{ID: "demo_articles", Path: "private://uploaded_data/b.csv"}))

	source, err := repo.GetMigrationSource(ctx, "demo_articles")
	require.NoError(t, err)
	assert.Equal(t, "private://uploaded_data/b.csv", source.Path)

	sources, err := repo.ListMigrationSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}
