package service

import (
	"errors"

	"github.com/viant/docrag/retriever"
)

var (
	ErrMissingUpload   = errors.New("category and file are required")
	ErrMissingQuestion = errors.New("question is required")
	ErrNoText          = errors.New("no text could be extracted from the file")
	ErrNoChunks        = errors.New("no chunks could be produced from the file")
	ErrNoDocuments     = errors.New("no matching documents found")
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	// ErrEmbedding reports that the question or every chunk failed to embed.
	ErrEmbedding = retriever.ErrEmbedding
)
