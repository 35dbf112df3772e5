package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(ctx, Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(ctx, Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
	})
}

func TestS3Backend_KeyPrefix(t *testing.T) {
	b := &Backend{config: Config{Prefix: "migrated/"}}
	assert.Equal(t, "migrated/images/a.jpg", b.key("images/a.jpg"))
	assert.Equal(t, "migrated/images/a.jpg", b.key("/images/a.jpg"))

	b = &Backend{}
	assert.Equal(t, "images/a.jpg", b.key("images/a.jpg"))
}

// TestS3Backend_Integration requires a running MinIO instance or S3 credentials
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 bucket,
		Region:                 "us-east-1",
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err, "Failed to create S3 backend")

	objectKey := fmt.Sprintf("test/integration/%d/file.txt", time.Now().Unix())
	testData := []byte("Hello from S3 integration test!")

	t.Run("UploadAndDownload", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, bytes.NewReader(testData), migrate.UploadParams{
			ObjectKey: objectKey,
			MimeType:  "text/plain",
		})
		require.NoError(t, err)

		reader, err := backend.Download(ctx, objectKey)
		require.NoError(t, err)
		defer reader.Close()

		downloaded, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, downloaded)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, objectKey)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "text/plain", meta.ContentType)
		assert.NotEmpty(t, meta.ETag)
	})

	t.Run("GetObjectMeta_NonExistent", func(t *testing.T) {
		_, err := backend.GetObjectMeta(ctx, "nonexistent/object.txt")
		assert.ErrorIs(t, err, migrate.ErrObjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, objectKey))

		_, err := backend.Download(ctx, objectKey)
		require.Error(t, err)
	})
}
