package fs

import (
	"context"

	"github.com/viant/afs/storage"
)

// Service abstracts listing, reading and writing corpus objects so the corpus can
// live on any backend (local disk, memory, cloud buckets).
type Service interface {
	// List returns objects available at the given location/URI.
	List(ctx context.Context, location string) ([]storage.Object, error)
	// Download returns the content of the given object.
	Download(ctx context.Context, object storage.Object) ([]byte, error)
	// Exists reports whether location exists.
	Exists(ctx context.Context, location string) (bool, error)
	// Read returns the content at location.
	Read(ctx context.Context, location string) ([]byte, error)
	// Upload writes data to location, creating parent folders as needed.
	Upload(ctx context.Context, location string, data []byte) error
}
