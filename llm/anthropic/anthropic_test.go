package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docrag/llm"
)

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Equal(t, "claude-test", req.Model)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Twenty "},{"type":"text","text":"days."}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	gen, err := New(llm.Config{APIKey: "key", BaseURL: server.URL, Model: "claude-test"})
	require.NoError(t, err)
	out, err := gen.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Twenty days.", out)
}

func TestGenerator_Errors(t *testing.T) {
	_, err := New(llm.Config{})
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()
	gen, err := New(llm.Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "q")
	assert.EqualError(t, err, "anthropic error: slow down")
}
