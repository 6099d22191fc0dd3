package service

import "github.com/viant/docrag/document"

// UploadRequest carries one uploaded file.
type UploadRequest struct {
	Category string
	Filename string
	Data     []byte
}

// UploadResult summarizes an upload.
type UploadResult struct {
	Category string `json:"category"`
	Filename string `json:"filename"`
	Location string `json:"location"`
	Chunks   int    `json:"chunks"`
	Stored   int    `json:"stored"`
	Skipped  int    `json:"skipped"`
}

// RechunkRequest re-ingests the corpus. Nil sizes fall back to the configured chunking.
type RechunkRequest struct {
	ChunkLength      *int   `json:"chunkLength,omitempty"`
	ChunkOverlap     *int   `json:"chunkOverlap,omitempty"`
	SpecificFile     string `json:"specificFile,omitempty"`
	SpecificCategory string `json:"specificCategory,omitempty"`
}

// RechunkResult summarizes a corpus re-ingestion.
type RechunkResult struct {
	Documents    int `json:"documents"`
	Chunks       int `json:"chunks"`
	Stored       int `json:"stored"`
	Skipped      int `json:"skipped"`
	Stale        int `json:"stale"`
	ChunkLength  int `json:"chunkLength"`
	ChunkOverlap int `json:"chunkOverlap"`
}

// Answer is a grounded answer with the chunks it was generated from.
type Answer struct {
	Answer   string            `json:"answer"`
	Sources  []document.Source `json:"sources"`
	Fallback bool              `json:"fallback"`
}
