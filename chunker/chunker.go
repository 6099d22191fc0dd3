// Package chunker splits extracted text into overlapping, sentence aligned chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/viant/docrag/document"
)

const (
	DefaultMaxSize = 1000
	DefaultOverlap = 200
)

var (
	ErrInvalidSize    = errors.New("chunk length must be positive")
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk length")
)

// Validate checks chunking parameters.
func Validate(maxSize, overlap int) error {
	if maxSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return fmt.Errorf("%w: overlap=%d length=%d", ErrInvalidOverlap, overlap, maxSize)
	}
	return nil
}

// Split chunks text into segments of at most maxSize characters, never breaking a sentence.
// A sentence longer than maxSize becomes a chunk of its own. Each chunk after the first starts
// with up to overlap trailing characters of the previous chunk.
func Split(text string, maxSize, overlap int) []string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	var chunks []string
	buffer := ""
	for _, sentence := range sentences {
		if strings.TrimSpace(buffer) != "" && length(join(buffer, sentence)) > maxSize {
			chunks = append(chunks, strings.TrimSpace(buffer))
			buffer = tail(buffer, overlap)
			// The seed shrinks so seed plus sentence stays within maxSize.
			if length(join(buffer, sentence)) > maxSize {
				buffer = tail(buffer, maxSize-length(sentence)-1)
			}
		}
		buffer = join(buffer, sentence)
	}
	if last := strings.TrimSpace(buffer); last != "" {
		chunks = append(chunks, last)
	}
	return chunks
}

func join(buffer, sentence string) string {
	if buffer == "" {
		return sentence
	}
	if strings.HasSuffix(buffer, " ") {
		return buffer + sentence
	}
	return buffer + " " + sentence
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

// Chunker splits documents with fixed parameters.
type Chunker struct {
	maxSize int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum chunk length in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) { c.maxSize = size }
}

// WithOverlap sets the number of characters carried into the next chunk.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// New creates a Chunker with default parameters.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxSize: DefaultMaxSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunks splits a document into chunks with contiguous indices starting at 0.
func (c *Chunker) Chunks(doc document.Document) []document.Chunk {
	parts := Split(doc.Content, c.maxSize, c.overlap)
	if len(parts) == 0 {
		return nil
	}
	out := make([]document.Chunk, len(parts))
	for i, part := range parts {
		out[i] = document.Chunk{
			Filename: doc.Filename,
			Category: doc.Category,
			Index:    i,
			Content:  part,
		}
	}
	return out
}
