package migrate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default bundle and owner values.
const (
	BundleImage = "image"

	DefaultLanguage = "en"
	DefaultSchema   = "public://"
	DefaultOwnerID  = int64(1)
)

// Alignment is the float direction carried into an embed directive.
type Alignment string

// Alignment constants (typed).
const (
	AlignNone  Alignment = ""
	AlignLeft  Alignment = "left"
	AlignRight Alignment = "right"
)

// AssetReference identifies a source asset and the display name its media
// record should carry.
type AssetReference struct {
	URI         string `json:"uri"`
	DisplayName string `json:"display_name,omitempty"`
}

// ParseAssetReference converts a field value into an AssetReference.
//
// A bare string is treated as the URI with an empty display name. A two
// element sequence is read as [uri, name]; the URI must come first.
func ParseAssetReference(value any) (AssetReference, error) {
	switch v := value.(type) {
	case nil:
		return AssetReference{}, nil
	case AssetReference:
		return v, nil
	case *AssetReference:
		if v == nil {
			return AssetReference{}, nil
		}
		return *v, nil
	case string:
		return AssetReference{URI: v}, nil
	case [2]string:
		return AssetReference{URI: v[0], DisplayName: v[1]}, nil
	case []string:
		return referenceFromPair(len(v), func(i int) (string, bool) { return v[i], true })
	case []any:
		return referenceFromPair(len(v), func(i int) (string, bool) {
			if v[i] == nil {
				return "", true
			}
			s, ok := v[i].(string)
			return s, ok
		})
	default:
		return AssetReference{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidReference, value)
	}
}

func referenceFromPair(n int, at func(int) (string, bool)) (AssetReference, error) {
	switch n {
	case 0:
		return AssetReference{}, nil
	case 1, 2:
	default:
		return AssetReference{}, fmt.Errorf("%w: expected [uri, name], got %d values", ErrInvalidReference, n)
	}

	uri, ok := at(0)
	if !ok {
		return AssetReference{}, fmt.Errorf("%w: uri must be a string", ErrInvalidReference)
	}
	ref := AssetReference{URI: uri}
	if n == 2 {
		name, ok := at(1)
		if !ok {
			return AssetReference{}, fmt.Errorf("%w: name must be a string", ErrInvalidReference)
		}
		ref.DisplayName = name
	}
	return ref, nil
}

// FileRecord represents a stored binary registered in the entity store.
type FileRecord struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	URI       string    `json:"uri"`
	OwnerID   int64     `json:"owner_id"`
	MimeType  string    `json:"mime_type"`
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	Permanent bool      `json:"permanent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MediaRecord wraps a FileRecord for a bundle and language.
type MediaRecord struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Bundle    string    `json:"bundle"`
	Language  string    `json:"language"`
	Name      string    `json:"name"`
	FileID    int64     `json:"file_id"`
	OwnerID   int64     `json:"owner_id"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MigrationSource holds the source path a migration reads its rows from.
type MigrationSource struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FetchedAsset describes an asset written to its destination by a Fetcher.
type FetchedAsset struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// ObjectMeta contains metadata about an object in a blob store
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
