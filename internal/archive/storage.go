// Package archive provides object storage for shutdown-report archival,
// with local filesystem and S3 backends.
package archive

import (
	"context"
	"errors"
)

// Common errors for archive operations.
var (
	ErrObjectNotFound = errors.New("archive: object not found")
	ErrUploadFailed   = errors.New("archive: upload failed")
	ErrDownloadFailed = errors.New("archive: download failed")
)

// ObjectStore abstracts the archival backend.
type ObjectStore interface {
	// Put stores data at objectPath.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get retrieves the object at objectPath.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)
}
