package vertexai

import (
	"context"
	"fmt"
	"sync"
)

// Embedder lazily creates a Client on first use so startup does not require credentials.
type Embedder struct {
	projectID string
	model     string
	opts      []ClientOption

	mu      sync.Mutex
	client  *Client
	initErr error
}

func NewEmbedder(projectID, model string, opts ...ClientOption) *Embedder {
	return &Embedder{projectID: projectID, model: model, opts: opts}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Embed(ctx, docs, TaskRetrievalDocument)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := client.Embed(ctx, []string{text}, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) getClient(ctx context.Context) (*Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil || e.initErr != nil {
		return e.client, e.initErr
	}
	if e.projectID == "" {
		e.initErr = fmt.Errorf("vertexai project id is required")
		return nil, e.initErr
	}
	client, err := NewClient(ctx, e.projectID, e.model, e.opts...)
	if err != nil {
		e.initErr = err
		return nil, err
	}
	e.client = client
	return client, nil
}
