package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	"github.com/tendant/simple-content-migrate/pkg/migrate/api"
	"github.com/tendant/simple-content-migrate/pkg/migrate/fetch"
	"github.com/tendant/simple-content-migrate/pkg/migrate/intake"
	"github.com/tendant/simple-content-migrate/pkg/migrate/repo/memory"
	"github.com/tendant/simple-content-migrate/pkg/migrate/runner"
	memorystorage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/memory"
)

// setupRouter wires the handler against in-memory stores
func setupRouter(t *testing.T, maxUploadBytes int64) (http.Handler, *memory.Repository) {
	t.Helper()

	repo := memory.New()
	private := memorystorage.New()
	stores := map[string]migrate.BlobStore{
		"public":  memorystorage.New(),
		"private": private,
	}

	fetcher, err := fetch.New(stores)
	require.NoError(t, err)
	materializer, err := migrate.NewMaterializer(migrate.AssetConfig{Bundle: migrate.BundleImage},
		migrate.WithEntityStore(repo),
		migrate.WithFetcher(fetcher),
	)
	require.NoError(t, err)
	rewriter, err := migrate.NewRewriter(materializer)
	require.NoError(t, err)

	intakeService, err := intake.New(repo, private)
	require.NoError(t, err)
	migrationRunner, err := runner.New(repo,
		runner.WithBlobStores(stores),
		runner.WithMigrations(
			runner.DemoArticleMigration(materializer, rewriter),
			runner.DemoCategoryMigration(),
		),
	)
	require.NoError(t, err)

	handler := api.NewMigrationHandler(intakeService, migrationRunner, repo, maxUploadBytes)
	return api.NewRouter(handler, "test"), repo
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, file := range files {
		part, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestUpload_Success(t *testing.T) {
	router, repo := setupRouter(t, 0)

	body, contentType := multipartBody(t, map[string][2]string{
		"article_file":  {"articles.csv", "id,title\n1,Hello\n"},
		"category_file": {"categories.csv", "id,name\n1,Food\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.UploadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Uploads, 2)
	assert.Equal(t, "Demo article content data uploaded as private://uploaded_data/articles.csv.", resp.Uploads[0].Message)
	assert.Equal(t, "private://uploaded_data/categories.csv", resp.Uploads[1].URI)

	source, err := repo.GetMigrationSource(context.Background(), "demo_categories")
	require.NoError(t, err)
	assert.Equal(t, "private://uploaded_data/categories.csv", source.Path)
}

func TestUpload_InvalidExtension(t *testing.T) {
	router, repo := setupRouter(t, 0)

	body, contentType := multipartBody(t, map[string][2]string{
		"article_file": {"articles.txt", "id\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "csv")

	sources, err := repo.ListMigrationSources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestUpload_MixedValidAndInvalid(t *testing.T) {
	router, repo := setupRouter(t, 0)

	body, contentType := multipartBody(t, map[string][2]string{
		"article_file":  {"articles.csv", "id,title\n1,Hello\n"},
		"category_file": {"categories.txt", "id,name\n1,Food\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "categories.txt")

	sources, err := repo.ListMigrationSources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestUpload_NoFiles(t *testing.T) {
	router, _ := setupRouter(t, 0)

	body, contentType := multipartBody(t, map[string][2]string{
		"other_file": {"x.csv", "id\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no files uploaded")
}

func TestUpload_TooLarge(t *testing.T) {
	router, _ := setupRouter(t, 1024)

	body, contentType := multipartBody(t, map[string][2]string{
		"article_file": {"articles.csv", strings.Repeat("x", 10*1024)},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestListMigrations(t *testing.T) {
	router, repo := setupRouter(t, 0)
	require.NoError(t, repo.SetMigrationSource(context.Background(), &migrate.MigrationSource{
		ID:   "demo_articles",
		Path: "private://uploaded_data/articles.csv",
	}))

	req := httptest.NewRequest(http.MethodGet, "/migrations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var infos []api.MigrationInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	require.Len(t, infos, 2)

	assert.Equal(t, "demo_articles", infos[0].ID)
	assert.Equal(t, "article_file", infos[0].Field)
	assert.Equal(t, "private://uploaded_data/articles.csv", infos[0].Source)
	assert.NotNil(t, infos[0].UpdatedAt)

	assert.Equal(t, "demo_categories", infos[1].ID)
	assert.Empty(t, infos[1].Source)
}

func TestListMigrations_SourceSize(t *testing.T) {
	router, _ := setupRouter(t, 0)

	content := "id,name\n1,Food\n"
	body, contentType := multipartBody(t, map[string][2]string{
		"category_file": {"categories.csv", content},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/migrations", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var infos []api.MigrationInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	require.Len(t, infos, 2)
	assert.Zero(t, infos[0].Size)
	assert.Equal(t, "private://uploaded_data/categories.csv", infos[1].Source)
	assert.Equal(t, int64(len(content)), infos[1].Size)
}

func TestRunMigration(t *testing.T) {
	router, _ := setupRouter(t, 0)

	body, contentType := multipartBody(t, map[string][2]string{
		"category_file": {"categories.csv", "id,name\n1,Food &amp; Drink\n2,Travel\n"},
	})
	req := httptest.NewRequest(http.MethodPost, "/migrations/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("Summary", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/migrations/demo_categories/run", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result runner.Result
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		assert.Equal(t, 2, result.Processed)
		assert.Zero(t, result.Failed)
		assert.Empty(t, result.Rows)
	})

	t.Run("WithRows", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/migrations/demo_categories/run?rows=true", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var result runner.Result
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "Food & Drink", result.Rows[0].Destination["name"])
	})

	t.Run("NoSource", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/migrations/demo_articles/run", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Unknown", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/migrations/demo_users/run", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
