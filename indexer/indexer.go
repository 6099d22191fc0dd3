// Package indexer turns documents into stored vector records.
package indexer

import (
	"context"
	"fmt"
	"log"

	"github.com/viant/docrag/chunker"
	"github.com/viant/docrag/document"
	"github.com/viant/docrag/embeddings/batch"
	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/meta"
)

// Result summarizes one ingestion.
type Result struct {
	Documents int
	Chunks    int
	Stored    int
	Skipped   int
	Failures  []batch.Failure
}

// Indexer chunks, embeds and upserts documents.
type Indexer struct {
	embedder       *batch.Embedder
	index          vectordb.Index
	embeddingModel string
	logf           func(format string, args ...any)
}

// Option configures Indexer.
type Option func(*Indexer)

// WithEmbeddingModel sets the model tag stored with every record.
func WithEmbeddingModel(tag string) Option {
	return func(i *Indexer) { i.embeddingModel = tag }
}

// WithLogf sets the logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(i *Indexer) { i.logf = fn }
}

// New creates an indexer writing into index.
func New(embedder *batch.Embedder, index vectordb.Index, opts ...Option) *Indexer {
	ret := &Indexer{embedder: embedder, index: index, logf: log.Printf}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Ingest chunks docs with the given parameters, embeds the chunks and upserts them in a single call.
// Chunks that fail to embed are skipped; an empty or inconsistent batch writes nothing.
func (i *Indexer) Ingest(ctx context.Context, docs []document.Document, maxSize, overlap int) (*Result, error) {
	if err := chunker.Validate(maxSize, overlap); err != nil {
		return nil, err
	}
	splitter := chunker.New(chunker.WithMaxSize(maxSize), chunker.WithOverlap(overlap))
	result := &Result{Documents: len(docs)}

	var chunks []document.Chunk
	checksums := map[string]string{}
	for _, doc := range docs {
		docChunks := splitter.Chunks(doc)
		if len(docChunks) > 0 {
			checksums[doc.Key()] = document.Checksum(doc.Content)
		}
		chunks = append(chunks, docChunks...)
	}
	result.Chunks = len(chunks)

	embedded, err := i.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	result.Failures = embedded.Failures
	result.Skipped = embedded.Dropped()

	batchRecords := i.records(embedded.Embedded, checksums)
	if err := batchRecords.Validate(); err != nil {
		return result, err
	}
	if err := i.index.Upsert(ctx, batchRecords); err != nil {
		return result, fmt.Errorf("upsert %d records: %w", batchRecords.Len(), err)
	}
	result.Stored = batchRecords.Len()
	i.logf("ingest documents=%d chunks=%d stored=%d skipped=%d", result.Documents, result.Chunks, result.Stored, result.Skipped)
	return result, nil
}

func (i *Indexer) records(embedded []document.EmbeddedChunk, checksums map[string]string) *vectordb.Batch {
	ret := &vectordb.Batch{
		IDs:       make([]string, 0, len(embedded)),
		Vectors:   make([][]float32, 0, len(embedded)),
		Documents: make([]string, 0, len(embedded)),
		Metadatas: make([]map[string]any, 0, len(embedded)),
	}
	for _, item := range embedded {
		key := document.Key(item.Category, item.Filename)
		ret.IDs = append(ret.IDs, item.ID())
		ret.Vectors = append(ret.Vectors, item.Embedding)
		ret.Documents = append(ret.Documents, item.Content)
		ret.Metadatas = append(ret.Metadatas, map[string]any{
			meta.Filename:       item.Filename,
			meta.Category:       item.Category,
			meta.ChunkIndex:     item.Index,
			meta.EmbeddingModel: i.embeddingModel,
			meta.Checksum:       checksums[key],
			meta.DocumentKey:    key,
		})
	}
	return ret
}
