// Package llm defines the text generation capability used to answer questions.
package llm

import (
	"context"
	"net/http"
	"time"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds settings shared by the HTTP adapters. Zero values select adapter defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxTokens  int
	HTTPClient *http.Client
}

// Client returns the configured client or a new one with the given default timeout.
func (c Config) Client(defaultTimeout time.Duration) *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
