package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	fsstorage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/fs"
)

// 1x1 transparent GIF
var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func TestFilesystemBackend(t *testing.T) {
	baseDir := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: baseDir})
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("RequiresBaseDir", func(t *testing.T) {
		_, err := fsstorage.New(fsstorage.Config{})
		assert.Error(t, err)
	})

	t.Run("UploadCreatesDirectories", func(t *testing.T) {
		err := backend.Upload(ctx, "images/2019/pixel.gif", strings.NewReader(string(gifBytes)))
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(baseDir, "images", "2019", "pixel.gif"))
		assert.NoError(t, err)
	})

	t.Run("GetObjectMetaDetectsType", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, "images/2019/pixel.gif")
		require.NoError(t, err)
		assert.Equal(t, "image/gif", meta.ContentType)
		assert.Equal(t, int64(len(gifBytes)), meta.Size)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, "images/2019/pixel.gif")
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, gifBytes, data)
	})

	t.Run("RejectsEscapingKeys", func(t *testing.T) {
		err := backend.Upload(ctx, "../outside.txt", strings.NewReader("x"))
		assert.Error(t, err)
	})

	t.Run("DeleteCleansEmptyDirectories", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "images/2019/pixel.gif"))

		_, err := os.Stat(filepath.Join(baseDir, "images"))
		assert.True(t, os.IsNotExist(err))

		_, err = os.Stat(baseDir)
		assert.NoError(t, err)
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := backend.Download(ctx, "nope.txt")
		assert.ErrorIs(t, err, migrate.ErrObjectNotFound)

		_, err = backend.GetObjectMeta(ctx, "nope.txt")
		assert.ErrorIs(t, err, migrate.ErrObjectNotFound)

		assert.ErrorIs(t, backend.Delete(ctx, "nope.txt"), migrate.ErrObjectNotFound)
	})
}
