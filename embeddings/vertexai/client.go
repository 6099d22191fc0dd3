package vertexai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultLocation = "us-central1"
	defaultModel    = "text-embedding-004"
	requestTimeout  = 30 * time.Second
	cloudScope      = "https://www.googleapis.com/auth/cloud-platform"

	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

type ClientOption func(*Client)

func WithLocation(location string) ClientOption {
	return func(c *Client) {
		if location != "" {
			c.Location = location
		}
	}
}

func WithScopes(scopes ...string) ClientOption {
	return func(c *Client) { c.Scopes = append(c.Scopes, scopes...) }
}

// WithTokenSource uses ts instead of the application default credentials.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) { c.tokenSource = ts }
}

// WithEndpoint overrides the predict endpoint URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpointURL = endpoint }
}

// WithDimensions truncates returned vectors server side.
func WithDimensions(dimensions int) ClientOption {
	return func(c *Client) { c.Dimensions = dimensions }
}

// Client calls the Vertex AI text embedding predict endpoint.
type Client struct {
	ProjectID  string
	Location   string
	Model      string
	Dimensions int
	Scopes     []string

	endpointURL string
	tokenSource oauth2.TokenSource
	http        *http.Client
}

// APIError carries a non-200 predict response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vertexai: status %d: %s", e.StatusCode, e.Body)
}

type instance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type,omitempty"`
}

type parameters struct {
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

type predictRequest struct {
	Instances  []instance  `json:"instances"`
	Parameters *parameters `json:"parameters,omitempty"`
}

type prediction struct {
	Embeddings struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

func NewClient(ctx context.Context, projectID, model string, opts ...ClientOption) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertexai project id is required")
	}
	c := &Client{ProjectID: projectID, Location: defaultLocation, Model: model}
	for _, opt := range opts {
		opt(c)
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{cloudScope}
	}
	if c.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, c.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("vertexai token source: %w", err)
		}
		c.tokenSource = ts
	}
	c.http = &http.Client{
		Timeout:   requestTimeout,
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, c.tokenSource)},
	}
	return c, nil
}

func (c *Client) endpoint() string {
	if c.endpointURL != "" {
		return c.endpointURL
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.Location, c.ProjectID, c.Location, c.Model)
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if c == nil {
		return nil, fmt.Errorf("vertexai client is nil")
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}
	payload := predictRequest{Instances: make([]instance, len(texts))}
	for i, text := range texts {
		payload.Instances[i] = instance{Content: text, TaskType: taskType}
	}
	if c.Dimensions > 0 {
		payload.Parameters = &parameters{OutputDimensionality: c.Dimensions}
	}
	var out predictResponse
	if err := c.post(ctx, payload, &out); err != nil {
		return nil, err
	}
	if len(out.Predictions) != len(texts) {
		return nil, fmt.Errorf("vertexai returned %d embeddings for %d inputs", len(out.Predictions), len(texts))
	}
	vectors := make([][]float32, len(out.Predictions))
	for i, p := range out.Predictions {
		vectors[i] = p.Embeddings.Values
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vertexai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vertexai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vertexai: send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vertexai: decode response: %w", err)
	}
	return nil
}
