// Package batch embeds chunks in sequential fixed-size batches, tolerating per-chunk failures.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/embeddings"
)

const DefaultBatchSize = 16

var (
	ErrNoEmbedding       = errors.New("no embedding")
	ErrEmptyVector       = errors.New("provider returned an empty vector")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Failure records a chunk dropped from a batch.
type Failure struct {
	Chunk document.Chunk
	Err   error
}

// Result holds embedded chunks in input order plus the chunks that were dropped.
type Result struct {
	Embedded []document.EmbeddedChunk
	Failures []Failure
}

// Dropped returns the number of chunks that failed to embed.
func (r *Result) Dropped() int {
	if r == nil {
		return 0
	}
	return len(r.Failures)
}

// Embedder applies an embeddings.Embedder to many chunks.
type Embedder struct {
	provider    embeddings.Embedder
	batchSize   int
	concurrency int
	normalize   bool
	limiter     *rate.Limiter
	logf        func(format string, args ...any)

	mu  sync.Mutex
	dim int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithBatchSize sets the number of chunks per batch.
func WithBatchSize(size int) Option {
	return func(e *Embedder) { e.batchSize = size }
}

// WithConcurrency caps concurrent provider calls within a batch.
func WithConcurrency(n int) Option {
	return func(e *Embedder) { e.concurrency = n }
}

// WithNormalize controls L2 normalization of returned vectors.
func WithNormalize(enabled bool) Option {
	return func(e *Embedder) { e.normalize = enabled }
}

// WithDimension fixes the expected vector length. Without it the length is taken from the
// first call that embeds anything and kept for the life of the Embedder.
func WithDimension(dim int) Option {
	return func(e *Embedder) { e.dim = dim }
}

// WithRateLimit paces provider calls to rps requests per second. Zero disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Embedder) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogf sets the logger used to report dropped chunks.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(e *Embedder) { e.logf = fn }
}

// New creates a batch embedder over provider.
func New(provider embeddings.Embedder, opts ...Option) *Embedder {
	e := &Embedder{
		provider:  provider,
		batchSize: DefaultBatchSize,
		normalize: true,
		logf:      log.Printf,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.concurrency <= 0 || e.concurrency > e.batchSize {
		e.concurrency = e.batchSize
	}
	if e.logf == nil {
		e.logf = func(string, ...any) {}
	}
	return e
}

// Provider returns the underlying embeddings provider.
func (e *Embedder) Provider() embeddings.Embedder { return e.provider }

// EmbedBatch embeds chunks batch by batch. A chunk whose embedding fails is left out of
// Embedded and reported in Failures; only context cancellation returns an error.
// Vectors whose length differs from Dimension fail with ErrDimensionMismatch.
func (e *Embedder) EmbedBatch(ctx context.Context, chunks []document.Chunk) (*Result, error) {
	vectors := make([][]float32, 0, len(chunks))
	errs := make([]error, 0, len(chunks))
	for start := 0; start < len(chunks); start += e.batchSize {
		end := min(start+e.batchSize, len(chunks))
		groupVectors, groupErrs, err := e.embedGroup(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, groupVectors...)
		errs = append(errs, groupErrs...)
	}
	dim := e.anchor(vectors, errs)
	result := &Result{Embedded: make([]document.EmbeddedChunk, 0, len(chunks))}
	for i, chunk := range chunks {
		vec, embedErr := vectors[i], errs[i]
		if embedErr == nil && len(vec) != dim {
			embedErr = fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
		}
		if embedErr != nil {
			e.logf("embed drop file=%s category=%s chunk=%d err=%v", chunk.Filename, chunk.Category, chunk.Index, embedErr)
			result.Failures = append(result.Failures, Failure{Chunk: chunk, Err: embedErr})
			continue
		}
		result.Embedded = append(result.Embedded, document.EmbeddedChunk{Chunk: chunk, Embedding: vec})
	}
	return result, nil
}

// Dimension returns the expected vector length, or 0 before anything was embedded.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// anchor returns the established dimension. When none is set yet, the most common length among
// successful vectors becomes the dimension; ties go to the length seen first.
func (e *Embedder) anchor(vectors [][]float32, errs []error) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim > 0 {
		return e.dim
	}
	counts := map[int]int{}
	best := 0
	for i, vec := range vectors {
		if errs[i] != nil {
			continue
		}
		counts[len(vec)]++
		if best == 0 || counts[len(vec)] > counts[best] {
			best = len(vec)
		}
	}
	e.dim = best
	return best
}

// embedGroup embeds one batch concurrently. Per-chunk errors are returned positionally.
func (e *Embedder) embedGroup(ctx context.Context, group []document.Chunk) ([][]float32, []error, error) {
	vectors := make([][]float32, len(group))
	errs := make([]error, len(group))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range group {
		g.Go(func() error {
			vec, err := e.embed(gctx, group[i].Content)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			vectors[i], errs[i] = vec, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectors, errs, nil
}

// EmbedOne embeds a single text. It returns ErrNoEmbedding when no usable vector is produced.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEmbedding, err)
	}
	if dim := e.Dimension(); dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("%w: %w: got %d, want %d", ErrNoEmbedding, ErrDimensionMismatch, len(vec), dim)
	}
	return vec, nil
}

func (e *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vec, err := e.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	if e.normalize {
		embeddings.Normalize(out)
	}
	return out, nil
}
