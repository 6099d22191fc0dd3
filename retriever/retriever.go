// Package retriever embeds a question and assembles the nearest chunks into a context block.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/embeddings/batch"
	"github.com/viant/docrag/vectordb"
	"github.com/viant/docrag/vectordb/meta"
)

const (
	// DefaultTopK is the number of chunks retrieved when k is not positive.
	DefaultTopK = 5
	// NoResults is the context used when nothing was retrieved.
	NoResults = "No relevant documents found."

	blockSeparator = "\n\n---\n\n"
)

var (
	ErrEmptyQuestion = errors.New("question is required")
	ErrEmbedding     = errors.New("question embedding failed")
)

// Result is a context block plus the sources it was built from, in index order.
type Result struct {
	Context string
	Sources []document.Source
}

// Retriever queries an index with embedded questions.
type Retriever struct {
	embedder *batch.Embedder
	index    vectordb.Index
	topK     int
}

// Option configures Retriever.
type Option func(*Retriever)

// WithTopK sets the default number of chunks to retrieve.
func WithTopK(k int) Option {
	return func(r *Retriever) { r.topK = k }
}

// New creates a retriever.
func New(embedder *batch.Embedder, index vectordb.Index, opts ...Option) *Retriever {
	ret := &Retriever{embedder: embedder, index: index, topK: DefaultTopK}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.topK <= 0 {
		ret.topK = DefaultTopK
	}
	return ret
}

// Retrieve returns the k chunks nearest to question. A failed question embedding
// is reported as ErrEmbedding, never as an empty result.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	found, err := r.index.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	sources := make([]document.Source, 0, found.Len())
	for i := 0; i < found.Len(); i++ {
		source := document.Source{Content: found.Documents[i]}
		if i < len(found.Metadatas) {
			source.Filename = meta.GetString(found.Metadatas[i], meta.Filename)
			source.Category = meta.GetString(found.Metadatas[i], meta.Category)
			source.ChunkIndex = meta.GetInt(found.Metadatas[i], meta.ChunkIndex)
		}
		if i < len(found.Scores) {
			source.Score = found.Scores[i]
		}
		sources = append(sources, source)
	}
	return &Result{Context: BuildContext(sources), Sources: sources}, nil
}

// BuildContext renders one labelled block per source separated by horizontal rules.
func BuildContext(sources []document.Source) string {
	if len(sources) == 0 {
		return NoResults
	}
	blocks := make([]string, 0, len(sources))
	for _, source := range sources {
		var b strings.Builder
		b.WriteString("Source: ")
		b.WriteString(source.Filename)
		b.WriteString("\nCategory: ")
		b.WriteString(source.Category)
		b.WriteString("\nChunk: ")
		b.WriteString(strconv.Itoa(source.ChunkIndex))
		b.WriteString("\n")
		b.WriteString(source.Content)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, blockSeparator)
}
