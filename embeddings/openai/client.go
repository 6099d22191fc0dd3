package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "text-embedding-3-small"
	requestTimeout = 30 * time.Second
)

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data  []embedItem `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// APIError is returned for a non-200 response.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai: %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai: %d: %s", e.StatusCode, e.Message)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithDimensions requests shortened embeddings (text-embedding-3 models only).
func WithDimensions(dimensions int) ClientOption {
	return func(c *Client) { c.Dimensions = dimensions }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// Client calls the /embeddings endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

// NewClient falls back to OPENAI_API_KEY when apiKey is empty.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{BaseURL: defaultBaseURL, APIKey: apiKey, Model: model}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	return c
}

// Embed returns one vector per text in input order, plus the tokens billed.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	var out embedResponse
	if err := c.post(ctx, "/embeddings", embedRequest{Model: c.Model, Input: texts, Dimensions: c.Dimensions}, &out); err != nil {
		return nil, 0, err
	}
	if len(out.Data) != len(texts) {
		return nil, 0, fmt.Errorf("openai: %d embeddings for %d inputs", len(out.Data), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vectors) || vectors[item.Index] != nil {
			return nil, 0, fmt.Errorf("openai: unexpected embedding index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, out.Usage.TotalTokens, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct {
	C      *Client
	tokens atomic.Int64
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	vectors, tokens, err := e.C.Embed(ctx, docs)
	e.tokens.Add(int64(tokens))
	return vectors, err
}

func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, tokens, err := e.C.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	e.tokens.Add(int64(tokens))
	return vectors[0], nil
}

// Tokens reports the tokens billed since the embedder was created.
func (e *Embedder) Tokens() int64 {
	return e.tokens.Load()
}
