package vertexai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestEmbedder_TaskTypes(t *testing.T) {
	var taskTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		taskTypes = append(taskTypes, req.Instances[0].TaskType)
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.1,0.2]}}]}`))
	}))
	defer server.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"})
	embedder := NewEmbedder("project", "", WithTokenSource(ts), WithEndpoint(server.URL))

	docs, err := embedder.EmbedDocuments(context.Background(), []string{"doc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}}, docs)
	_, err = embedder.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []string{TaskRetrievalDocument, TaskRetrievalQuery}, taskTypes)
}

func TestEmbedder_RequiresProject(t *testing.T) {
	_, err := NewEmbedder("", "").EmbedQuery(context.Background(), "q")
	require.Error(t, err)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Parameters)
		assert.Equal(t, 256, req.Parameters.OutputDimensionality)
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"})
	client, err := NewClient(context.Background(), "project", "", WithTokenSource(ts), WithEndpoint(server.URL), WithDimensions(256))
	require.NoError(t, err)
	_, err = client.Embed(context.Background(), []string{"doc"}, TaskRetrievalDocument)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded", apiErr.Body)
}
