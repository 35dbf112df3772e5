package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tendant/simple-content-migrate/pkg/migrate"
	fsstorage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/fs"
	memorystorage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/memory"
	s3storage "github.com/tendant/simple-content-migrate/pkg/migrate/storage/s3"
)

// storageLocation is a parsed storage URL
type storageLocation struct {
	Type    string // memory, fs, s3
	BaseDir string
	S3      s3storage.Config
}

func parseStorageURL(raw string) (storageLocation, error) {
	if raw == "" || raw == "memory" || raw == "memory://" {
		return storageLocation{Type: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storageLocation{}, err
	}

	switch u.Scheme {
	case "memory":
		return storageLocation{Type: "memory"}, nil
	case "file":
		dir := u.Host + u.Path
		if dir == "" {
			return storageLocation{}, fmt.Errorf("file storage url %q has no directory", raw)
		}
		return storageLocation{Type: "fs", BaseDir: dir}, nil
	case "s3":
		if u.Host == "" {
			return storageLocation{}, fmt.Errorf("s3 storage url %q has no bucket", raw)
		}
		q := u.Query()
		cfg := s3storage.Config{
			Bucket:                 u.Host,
			Prefix:                 strings.Trim(u.Path, "/"),
			Region:                 q.Get("region"),
			Endpoint:               q.Get("endpoint"),
			UsePathStyle:           getBool(q, "path_style"),
			CreateBucketIfNotExist: getBool(q, "create_bucket"),
			SSEAlgorithm:           q.Get("sse"),
			SSEKMSKeyID:            q.Get("sse_kms_key_id"),
		}
		cfg.EnableSSE = cfg.SSEAlgorithm != ""
		return storageLocation{Type: "s3", S3: cfg}, nil
	default:
		return storageLocation{}, fmt.Errorf("unsupported storage scheme %q (use memory://, file:// or s3://)", u.Scheme)
	}
}

func getBool(q url.Values, key string) bool {
	v, err := strconv.ParseBool(q.Get(key))
	return err == nil && v
}

// buildBlobStore creates the backend described by a storage URL. Region,
// endpoint and credentials not present in the URL come from c.S3.
func (c *Config) buildBlobStore(ctx context.Context, raw string) (migrate.BlobStore, error) {
	loc, err := parseStorageURL(raw)
	if err != nil {
		return nil, err
	}

	switch loc.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: loc.BaseDir})
	case "s3":
		cfg := loc.S3
		if cfg.Region == "" {
			cfg.Region = c.S3.Region
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = c.S3.Endpoint
		}
		cfg.AccessKeyID = c.S3.AccessKeyID
		cfg.SecretAccessKey = c.S3.SecretAccessKey
		return s3storage.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", loc.Type)
	}
}
