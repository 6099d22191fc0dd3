package document

import (
	"path"
	"strings"
)

// Document is a source file with its extracted text.
type Document struct {
	Filename string `json:"filename"`
	// Category is a slash separated grouping label derived from the directory layout.
	Category string `json:"category"`
	Content  string `json:"content"`
}

// Key returns the per-document grouping key.
func (d Document) Key() string {
	return Key(d.Category, d.Filename)
}

// Chunk is a size-bounded slice of a document's text.
type Chunk struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	Index    int    `json:"chunkIndex"`
	Content  string `json:"content"`
}

// ID returns the chunk identity.
func (c Chunk) ID() string {
	return ID(c.Filename, c.Category, c.Index)
}

// EmbeddedChunk is a chunk with its embedding.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32 `json:"-"`
}

// Source describes one retrieved chunk.
type Source struct {
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content,omitempty"`
	Score      float32 `json:"score,omitempty"`
}

// Key joins category and filename into a document key.
func Key(category, filename string) string {
	category = strings.Trim(category, "/")
	if category == "" {
		return filename
	}
	return path.Join(category, filename)
}
