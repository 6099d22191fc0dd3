package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/viant/docrag/answer"
	"github.com/viant/docrag/chunker"
	"github.com/viant/docrag/document"
	"github.com/viant/docrag/embeddings"
	"github.com/viant/docrag/embeddings/batch"
	"github.com/viant/docrag/indexer"
	"github.com/viant/docrag/indexer/fs"
	"github.com/viant/docrag/llm"
	"github.com/viant/docrag/retriever"
	"github.com/viant/docrag/vectordb"
)

// Option configures the Service.
type Option func(*Service)

// WithIndex sets the vector index.
func WithIndex(index vectordb.Index) Option {
	return func(s *Service) { s.index = index }
}

// WithEmbedder sets the embeddings provider.
func WithEmbedder(provider embeddings.Embedder) Option {
	return func(s *Service) { s.provider = provider }
}

// WithBatchOptions configures batch embedding (batch size, concurrency, rate limit).
func WithBatchOptions(opts ...batch.Option) Option {
	return func(s *Service) { s.batchOptions = append(s.batchOptions, opts...) }
}

// WithGenerator sets the answer model. Without one every answer is the fallback.
func WithGenerator(generator llm.Generator) Option {
	return func(s *Service) { s.generator = generator }
}

// WithLoader sets the corpus loader.
func WithLoader(loader *fs.Loader) Option {
	return func(s *Service) { s.loader = loader }
}

// WithChunking sets the default chunk length and overlap.
func WithChunking(length, overlap int) Option {
	return func(s *Service) {
		s.chunkLength = length
		s.chunkOverlap = overlap
	}
}

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithEmbeddingModel sets the model tag stored with every chunk.
func WithEmbeddingModel(tag string) Option {
	return func(s *Service) { s.embeddingModel = tag }
}

// WithLogf sets the logger shared by all components.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Service) { s.logf = fn }
}

// Service exposes upload, rechunk, retrieval and question answering.
type Service struct {
	index          vectordb.Index
	provider       embeddings.Embedder
	batchOptions   []batch.Option
	generator      llm.Generator
	loader         *fs.Loader
	chunkLength    int
	chunkOverlap   int
	topK           int
	embeddingModel string
	logf           func(format string, args ...any)

	embedder  *batch.Embedder
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	answerer  *answer.Generator
}

// New creates a Service. An index, an embedder and a loader are required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		chunkLength:  chunker.DefaultMaxSize,
		chunkOverlap: chunker.DefaultOverlap,
		topK:         retriever.DefaultTopK,
		logf:         log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	switch {
	case s.index == nil:
		return nil, fmt.Errorf("service: index is required")
	case s.provider == nil:
		return nil, fmt.Errorf("service: embedder is required")
	case s.loader == nil:
		return nil, fmt.Errorf("service: loader is required")
	}
	if err := chunker.Validate(s.chunkLength, s.chunkOverlap); err != nil {
		return nil, fmt.Errorf("service: %w: %v", ErrInvalidChunking, err)
	}
	batchOptions := append([]batch.Option{batch.WithLogf(s.logf)}, s.batchOptions...)
	s.embedder = batch.New(s.provider, batchOptions...)
	s.indexer = indexer.New(s.embedder, s.index, indexer.WithEmbeddingModel(s.embeddingModel), indexer.WithLogf(s.logf))
	s.retriever = retriever.New(s.embedder, s.index, retriever.WithTopK(s.topK))
	s.answerer = answer.New(s.generator, answer.WithLogf(s.logf))
	return s, nil
}

// Close releases the index when it owns resources.
func (s *Service) Close() error {
	if closer, ok := s.index.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Chunking returns the default chunk length and overlap.
func (s *Service) Chunking() (int, int) { return s.chunkLength, s.chunkOverlap }

// Upload ingests a file as a single document. The file is saved to the corpus only once its
// text yields at least one chunk.
func (s *Service) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || strings.TrimSpace(req.Category) == "" || strings.TrimSpace(req.Filename) == "" || req.Data == nil {
		return nil, ErrMissingUpload
	}
	text, err := s.loader.Extract(req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoText, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	if len(chunker.Split(text, s.chunkLength, s.chunkOverlap)) == 0 {
		return nil, ErrNoChunks
	}
	location, err := s.loader.Save(ctx, req.Category, req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	doc := document.Document{Filename: strings.TrimSpace(req.Filename), Category: fs.CleanCategory(req.Category), Content: text}
	ingested, err := s.indexer.Ingest(ctx, []document.Document{doc}, s.chunkLength, s.chunkOverlap)
	if err != nil {
		return nil, s.ingestError(err)
	}
	s.logf("upload category=%s file=%s chunks=%d stored=%d skipped=%d", doc.Category, doc.Filename, ingested.Chunks, ingested.Stored, ingested.Skipped)
	return &UploadResult{
		Category: doc.Category,
		Filename: doc.Filename,
		Location: location,
		Chunks:   ingested.Chunks,
		Stored:   ingested.Stored,
		Skipped:  ingested.Skipped,
	}, nil
}

// Rechunk re-ingests every corpus document matching the request filter.
func (s *Service) Rechunk(ctx context.Context, req *RechunkRequest) (*RechunkResult, error) {
	if req == nil {
		req = &RechunkRequest{}
	}
	length, overlap := s.chunkLength, s.chunkOverlap
	if req.ChunkLength != nil {
		length = *req.ChunkLength
	}
	if req.ChunkOverlap != nil {
		overlap = *req.ChunkOverlap
	}
	if err := chunker.Validate(length, overlap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunking, err)
	}
	docs, err := s.loader.Load(ctx, fs.Filter{Category: req.SpecificCategory, Filename: req.SpecificFile})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	ingested, err := s.indexer.Ingest(ctx, docs, length, overlap)
	if err != nil {
		return nil, s.ingestError(err)
	}
	return &RechunkResult{
		Documents:    ingested.Documents,
		Stale:        s.staleChunks(ctx, docs),
		Chunks:       ingested.Chunks,
		Stored:       ingested.Stored,
		Skipped:      ingested.Skipped,
		ChunkLength:  length,
		ChunkOverlap: overlap,
	}, nil
}

// Retrieve returns the context block and sources for question.
func (s *Service) Retrieve(ctx context.Context, question string, k int) (*retriever.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrMissingQuestion
	}
	return s.retriever.Retrieve(ctx, question, k)
}

// Answer generates an answer constrained to contextBlock.
func (s *Service) Answer(ctx context.Context, question, contextBlock string) (string, bool) {
	return s.answerer.Answer(ctx, question, contextBlock)
}

// Ask retrieves context for question and answers from it. The generator runs even when
// nothing was retrieved so the model can return the fallback sentence.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrMissingQuestion
	}
	retrieved, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return nil, err
	}
	text, fallback := s.answerer.Answer(ctx, question, retrieved.Context)
	return &Answer{Answer: text, Sources: retrieved.Sources, Fallback: fallback}, nil
}

// staleChunks counts records left over from earlier chunk parameters for docs.
// Indexes without write sequences report none.
func (s *Service) staleChunks(ctx context.Context, docs []document.Document) int {
	detector, ok := s.index.(vectordb.StaleDetector)
	if !ok {
		return 0
	}
	seen := map[string]bool{}
	total := 0
	for _, doc := range docs {
		key := document.Key(doc.Category, doc.Filename)
		if seen[key] {
			continue
		}
		seen[key] = true
		ids, err := detector.StaleChunks(ctx, key)
		if err != nil {
			s.logf("rechunk: stale check failed for %s: %v", key, err)
			continue
		}
		if len(ids) > 0 {
			s.logf("rechunk: %s has %d stale chunks", key, len(ids))
			total += len(ids)
		}
	}
	return total
}

func (s *Service) ingestError(err error) error {
	if errors.Is(err, vectordb.ErrEmptyBatch) {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return err
}
