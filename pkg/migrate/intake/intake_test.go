package intake_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	"github.com/tendant/simple-content-migrate/pkg/migrate/intake"
	"github.com/tendant/simple-content-migrate/pkg/migrate/repo/memory"
	memorystorage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/memory"
)

func newService(t *testing.T) (*intake.Service, *memory.Repository, *memorystorage.Backend) {
	t.Helper()
	repo := memory.New()
	blobs := memorystorage.New()
	svc, err := intake.New(repo, blobs)
	require.NoError(t, err)
	return svc, repo, blobs
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := intake.New(nil, memorystorage.New())
	assert.Error(t, err)
	_, err = intake.New(memory.New(), nil)
	assert.Error(t, err)
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()
	svc, repo, blobs := newService(t)

	result, err := svc.Upload(ctx, intake.UploadRequest{
		MigrationID: "articles",
		FileName:    "articles.csv",
		Reader:      strings.NewReader("id,title\n1,Hello\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "demo_articles", result.MigrationID)
	assert.Equal(t, "private://uploaded_data/articles.csv", result.URI)
	assert.Equal(t, "Demo article content data uploaded as private://uploaded_data/articles.csv.", result.Message)

	source, err := repo.GetMigrationSource(ctx, "demo_articles")
	require.NoError(t, err)
	assert.Equal(t, result.URI, source.Path)

	reader, err := blobs.Download(ctx, "uploaded_data/articles.csv")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "id,title\n1,Hello\n", string(data))

	meta, err := blobs.GetObjectMeta(ctx, "uploaded_data/articles.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", meta.ContentType)
}

func TestService_UploadReplaces(t *testing.T) {
	ctx := context.Background()
	svc, _, blobs := newService(t)

	for _, content := range []string{"old", "new"} {
		_, err := svc.Upload(ctx, intake.UploadRequest{
			MigrationID: "demo_categories",
			FileName:    "cats.CSV",
			Reader:      strings.NewReader(content),
		})
		require.NoError(t, err)
	}

	reader, err := blobs.Download(ctx, "uploaded_data/cats.CSV")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestService_UploadStripsDirectories(t *testing.T) {
	svc, _, _ := newService(t)

	result, err := svc.Upload(context.Background(), intake.UploadRequest{
		MigrationID: "category_file",
		FileName:    `C:\Users\me\..\categories.csv`,
		Reader:      strings.NewReader("id\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "private://uploaded_data/categories.csv", result.URI)
	assert.Equal(t, "Demo category data uploaded as private://uploaded_data/categories.csv.", result.Message)
}

func TestService_UploadErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     intake.UploadRequest
		wantErr error
	}{
		{
			name:    "wrong extension",
			req:     intake.UploadRequest{MigrationID: "articles", FileName: "articles.xlsx", Reader: strings.NewReader("x")},
			wantErr: intake.ErrInvalidExtension,
		},
		{
			name:    "unknown migration",
			req:     intake.UploadRequest{MigrationID: "users", FileName: "users.csv", Reader: strings.NewReader("x")},
			wantErr: intake.ErrUnknownMigration,
		},
		{
			name:    "missing file name",
			req:     intake.UploadRequest{MigrationID: "articles", Reader: strings.NewReader("x")},
			wantErr: intake.ErrMissingFile,
		},
		{
			name:    "missing reader",
			req:     intake.UploadRequest{MigrationID: "articles", FileName: "a.csv"},
			wantErr: intake.ErrMissingFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService(t)
			assert.ErrorIs(t, svc.Validate(tt.req), tt.wantErr)

			_, err := svc.Upload(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			sources, err := repo.ListMigrationSources(ctx)
			require.NoError(t, err)
			assert.Empty(t, sources)
		})
	}
}

func TestService_Stat(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	result, err := svc.Upload(ctx, intake.UploadRequest{
		MigrationID: "articles",
		FileName:    "articles.csv",
		Reader:      strings.NewReader("id,title\n"),
	})
	require.NoError(t, err)

	meta, err := svc.Stat(ctx, result.URI)
	require.NoError(t, err)
	assert.Equal(t, int64(len("id,title\n")), meta.Size)
	assert.Equal(t, "text/csv", meta.ContentType)

	_, err = svc.Stat(ctx, "private://uploaded_data/missing.csv")
	assert.ErrorIs(t, err, migrate.ErrObjectNotFound)

	_, err = svc.Stat(ctx, "public://uploaded_data/articles.csv")
	assert.Error(t, err)
}

func TestService_Targets(t *testing.T) {
	svc, err := intake.New(memory.New(), memorystorage.New(),
		intake.WithTargets(intake.Target{Key: "pages", Field: "page_file", MigrationID: "demo_pages", Label: "Pages"}),
		intake.WithScheme("public"),
		intake.WithDirectory("/imports/"),
	)
	require.NoError(t, err)

	require.Len(t, svc.Targets(), 1)
	_, ok := svc.Target("articles")
	assert.False(t, ok)

	result, err := svc.Upload(context.Background(), intake.UploadRequest{
		MigrationID: "pages",
		FileName:    "pages.csv",
		Reader:      strings.NewReader("id\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "public://imports/pages.csv", result.URI)
	assert.Equal(t, migrate.JoinURI("public", "imports/pages.csv"), result.URI)
}
