package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/service"
)

//go:embed tools/ask.md
var descAsk string

//go:embed tools/search.md
var descSearch string

//go:embed tools/rechunk.md
var descRechunk string

func registerTools(registry *protoserver.Registry, h *Handler) error {
	if err := protoserver.RegisterTool[*AskInput, *AskOutput](registry, "ask", descAsk, func(ctx context.Context, in *AskInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.ask(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*SearchInput, *SearchOutput](registry, "search", descSearch, func(ctx context.Context, in *SearchInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.search(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*RechunkInput, *RechunkOutput](registry, "rechunk", descRechunk, func(ctx context.Context, in *RechunkInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.rechunk(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	return nil
}

func buildErrorResult(message string) (*schema.CallToolResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.InvalidParams, message, nil)
}

func buildSuccessResult(payload any) (*schema.CallToolResult, *jsonrpc.Error) {
	b, _ := json.Marshal(payload)
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{
			schema.TextContent{Type: "text", Text: string(b)},
		},
		StructuredContent: map[string]any{"result": payload},
	}, nil
}

func (h *Handler) ask(ctx context.Context, in *AskInput) (*AskOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil || strings.TrimSpace(in.Question) == "" {
		return nil, fmt.Errorf("mcp: %w", service.ErrMissingQuestion)
	}
	got, err := h.service.Ask(ctx, in.Question)
	if err != nil {
		return nil, err
	}
	if h.metricsLog {
		h.logf("mcp metric op=ask sources=%d fallback=%t dur=%s", len(got.Sources), got.Fallback, time.Since(start))
	}
	return &AskOutput{Answer: got.Answer, Fallback: got.Fallback, Sources: got.Sources}, nil
}

func (h *Handler) search(ctx context.Context, in *SearchInput) (*SearchOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil || strings.TrimSpace(in.Question) == "" {
		return nil, fmt.Errorf("mcp: %w", service.ErrMissingQuestion)
	}
	found, err := h.service.Retrieve(ctx, in.Question, in.K)
	if err != nil {
		return nil, err
	}
	sources := found.Sources
	if in.MaxBytes > 0 {
		sources = make([]document.Source, len(found.Sources))
		for i, source := range found.Sources {
			source.Content = clipText(source.Content, in.MaxBytes)
			sources[i] = source
		}
	}
	if h.metricsLog {
		h.logf("mcp metric op=search matches=%d dur=%s", len(sources), time.Since(start))
	}
	return &SearchOutput{Context: found.Context, Sources: sources}, nil
}

func (h *Handler) rechunk(ctx context.Context, in *RechunkInput) (*RechunkOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &RechunkInput{}
	}
	result, err := h.service.Rechunk(ctx, &service.RechunkRequest{
		ChunkLength:      in.ChunkLength,
		ChunkOverlap:     in.ChunkOverlap,
		SpecificFile:     in.SpecificFile,
		SpecificCategory: in.SpecificCategory,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoDocuments) {
			return &RechunkOutput{Message: "No matching documents found"}, nil
		}
		return nil, err
	}
	if h.metricsLog {
		h.logf("mcp metric op=rechunk documents=%d chunks=%d stale=%d dur=%s", result.Documents, result.Chunks, result.Stale, time.Since(start))
	}
	return &RechunkOutput{
		Message:      "Documents rechunked successfully",
		Documents:    result.Documents,
		Chunks:       result.Chunks,
		Stored:       result.Stored,
		Skipped:      result.Skipped,
		Stale:        result.Stale,
		ChunkLength:  result.ChunkLength,
		ChunkOverlap: result.ChunkOverlap,
	}, nil
}

func clipText(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
