// Package objectstore abstracts the archival object backend behind a small
// put/get/delete/exists interface so the engine never type-switches on the
// concrete storage. GCS is used when a bucket is configured; otherwise an
// in-memory store backs local development and tests.
package objectstore

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// ErrNotFound is returned by Get and Delete when the key has no object.
var ErrNotFound = errors.New("object not found")

type Store interface {
	// Put writes data under key, overwriting any existing object, and
	// returns the sha256 hex checksum of the stored bytes.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NewFromEnv selects the backend: GCS when ARCHIVE_GCS_BUCKET_NAME is set,
// in-memory otherwise.
func NewFromEnv(log *logger.Logger) (Store, error) {
	bucket := strings.TrimSpace(os.Getenv("ARCHIVE_GCS_BUCKET_NAME"))
	if bucket == "" {
		log.Warn("ARCHIVE_GCS_BUCKET_NAME not set, using in-memory object store")
		return NewMemoryStore(), nil
	}
	return NewGCSStore(log, bucket)
}
