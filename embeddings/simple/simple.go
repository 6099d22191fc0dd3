// Package simple provides a deterministic offline embedder.
package simple

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultDim = 64

// Embedder hashes lower-cased word tokens into a fixed number of buckets.
// Texts sharing words get similar vectors, which is enough for local runs and tests.
type Embedder struct {
	Dim int
}

// New constructs a simple deterministic embedder.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = defaultDim
	}
	return &Embedder{Dim: dim}
}

// EmbedDocuments embeds documents deterministically.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, doc := range docs {
		out[i] = e.embed(doc)
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *Embedder) embed(text string) []float32 {
	dim := e.Dim
	if dim <= 0 {
		dim = defaultDim
	}
	vec := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(dim)]++
	}
	return vec
}
