package openai

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
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "What is leave?", req.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Twenty days."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	gen, err := New(llm.Config{APIKey: "sk-test", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	out, err := gen.Generate(context.Background(), "What is leave?")
	require.NoError(t, err)
	assert.Equal(t, "Twenty days.", out)
}

func TestGenerator_Errors(t *testing.T) {
	_, err := New(llm.Config{})
	assert.Error(t, err)

	testCases := []struct {
		description string
		status      int
		body        string
		expect      string
	}{
		{description: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"auth"}}`, expect: "openai error: bad key"},
		{description: "no choices", status: http.StatusOK, body: `{"choices":[]}`, expect: "openai: no response choices returned"},
		{description: "non json", status: http.StatusBadGateway, body: `oops`, expect: "openai error (status 502): oops"},
	}
	for _, testCase := range testCases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(testCase.status)
			_, _ = w.Write([]byte(testCase.body))
		}))
		gen, err := New(llm.Config{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)
		_, err = gen.Generate(context.Background(), "q")
		assert.EqualError(t, err, testCase.expect, testCase.description)
		server.Close()
	}
}
