package fs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
)

type afsStorage struct {
	fs afs.Service
}

// NewAFS returns a Service over the default afs registry: file:// and mem://, plus any
// scheme registered by an imported afsc package (gs://, s3://).
func NewAFS() Service {
	return NewAFSWith(afs.New())
}

// NewAFSWith wraps an existing afs service.
func NewAFSWith(svc afs.Service) Service {
	return &afsStorage{fs: svc}
}

func (a *afsStorage) List(ctx context.Context, location string) ([]storage.Object, error) {
	objects, err := a.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", location, err)
	}
	return objects, nil
}

func (a *afsStorage) Download(ctx context.Context, object storage.Object) ([]byte, error) {
	return a.fs.Download(ctx, object)
}

func (a *afsStorage) Exists(ctx context.Context, location string) (bool, error) {
	return a.fs.Exists(ctx, location)
}

func (a *afsStorage) Read(ctx context.Context, location string) ([]byte, error) {
	return a.fs.DownloadWithURL(ctx, location)
}

// Upload overwrites location; afs creates missing parent folders.
func (a *afsStorage) Upload(ctx context.Context, location string, data []byte) error {
	return a.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data))
}
