package migrate

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrFileNotFound indicates no file record matched the lookup
	ErrFileNotFound = errors.New("file not found")

	// ErrMediaNotFound indicates no media record matched the lookup
	ErrMediaNotFound = errors.New("media not found")

	// ErrMigrationSourceNotFound indicates an unknown migration source
	ErrMigrationSourceNotFound = errors.New("migration source not found")

	// ErrObjectNotFound indicates a blob store key does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreNotFound indicates a destination scheme with no registered blob store
	ErrStoreNotFound = errors.New("blob store not found")

	// ErrInvalidReference indicates a field value that cannot be read as an AssetReference
	ErrInvalidReference = errors.New("invalid asset reference")

	// ErrInvalidURI indicates a destination that is not of the form scheme://key
	ErrInvalidURI = errors.New("invalid stored uri")
)

// FetchError reports why an asset could not be copied or downloaded.
type FetchError struct {
	Source      string
	Destination string
	Err         error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MaterializeError represents an entity store failure while materializing an asset
type MaterializeError struct {
	URI string
	Op  string
	Err error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize operation %s failed for %s: %v", e.Op, e.URI, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
