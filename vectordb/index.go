package vectordb

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch     = errors.New("vectordb: empty upsert batch")
	ErrLengthMismatch = errors.New("vectordb: upsert arrays differ in length")
)

// Index stores (id, vector, document, metadata) tuples and answers nearest-neighbour queries.
// Upsert overwrites records with the same id; the last write wins.
type Index interface {
	Upsert(ctx context.Context, batch *Batch) error
	Query(ctx context.Context, vector []float32, k int) (*QueryResult, error)
}

// Counter is implemented by indexes that can report their record count.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// StaleDetector is implemented by indexes that track a write sequence per document.
// StaleChunks returns the ids of a document's records older than its latest write.
type StaleDetector interface {
	StaleChunks(ctx context.Context, key string) ([]string, error)
}

// Batch holds parallel arrays for one upsert call.
type Batch struct {
	IDs       []string
	Vectors   [][]float32
	Documents []string
	Metadatas []map[string]any
}

// Len returns the number of ids in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.IDs)
}

// Validate requires the four arrays to be non-empty and of equal length.
func (b *Batch) Validate() error {
	if b == nil || len(b.IDs) == 0 {
		return ErrEmptyBatch
	}
	n := len(b.IDs)
	if len(b.Vectors) != n || len(b.Documents) != n || len(b.Metadatas) != n {
		return fmt.Errorf("%w: ids=%d vectors=%d documents=%d metadatas=%d",
			ErrLengthMismatch, n, len(b.Vectors), len(b.Documents), len(b.Metadatas))
	}
	for i, vec := range b.Vectors {
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty vector for id %s", ErrLengthMismatch, b.IDs[i])
		}
	}
	return nil
}

// QueryResult holds documents and metadata ordered by decreasing similarity.
type QueryResult struct {
	Documents []string
	Metadatas []map[string]any
	Scores    []float32
}

// Len returns the number of results.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Documents)
}
