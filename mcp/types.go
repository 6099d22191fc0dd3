package mcp

import "github.com/viant/docrag/document"

type AskInput struct {
	Question string `json:"question"`
}

type AskOutput struct {
	Answer   string            `json:"answer"`
	Fallback bool              `json:"fallback"`
	Sources  []document.Source `json:"sources"`
}

type SearchInput struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
	// MaxBytes clips each returned chunk; zero returns full content.
	MaxBytes int `json:"maxBytes,omitempty"`
}

type SearchOutput struct {
	Context string            `json:"context"`
	Sources []document.Source `json:"sources"`
}

type RechunkInput struct {
	ChunkLength      *int   `json:"chunkLength,omitempty"`
	ChunkOverlap     *int   `json:"chunkOverlap,omitempty"`
	SpecificFile     string `json:"specificFile,omitempty"`
	SpecificCategory string `json:"specificCategory,omitempty"`
}

type RechunkOutput struct {
	Message      string `json:"message"`
	Documents    int    `json:"documents"`
	Chunks       int    `json:"chunks"`
	Stored       int    `json:"stored"`
	Skipped      int    `json:"skipped"`
	Stale        int    `json:"stale"`
	ChunkLength  int    `json:"chunkLength"`
	ChunkOverlap int    `json:"chunkOverlap"`
}
