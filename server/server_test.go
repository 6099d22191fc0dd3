package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/indexer/fs"
	"github.com/viant/docrag/service"
)

type fakeService struct {
	uploadReq  *service.UploadRequest
	uploadErr  error
	rechunkReq *service.RechunkRequest
	rechunkErr error
	answer     *service.Answer
	askErr     error
}

func (f *fakeService) Upload(ctx context.Context, req *service.UploadRequest) (*service.UploadResult, error) {
	f.uploadReq = req
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &service.UploadResult{Category: req.Category, Filename: req.Filename, Chunks: 3, Stored: 3}, nil
}

func (f *fakeService) Rechunk(ctx context.Context, req *service.RechunkRequest) (*service.RechunkResult, error) {
	f.rechunkReq = req
	if f.rechunkErr != nil {
		return nil, f.rechunkErr
	}
	return &service.RechunkResult{Documents: 2, Chunks: 7, Stored: 7, ChunkLength: 1000, ChunkOverlap: 200}, nil
}

func (f *fakeService) Ask(ctx context.Context, question string) (*service.Answer, error) {
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.answer, nil
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func do(t *testing.T, handler http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestUpload(t *testing.T) {
	testCases := []struct {
		description string
		fields      map[string]string
		filename    string
		err         error
		status      int
		expectError string
	}{
		{description: "success", fields: map[string]string{"category": "finance"}, filename: "report.txt", status: http.StatusOK},
		{description: "missing category", fields: map[string]string{}, filename: "report.txt", status: http.StatusBadRequest, expectError: "category and file are required"},
		{description: "missing file", fields: map[string]string{"category": "finance"}, status: http.StatusBadRequest, expectError: "category and file are required"},
		{description: "no text", fields: map[string]string{"category": "finance"}, filename: "scan.pdf", err: service.ErrNoText, status: http.StatusBadRequest, expectError: service.ErrNoText.Error()},
		{description: "no chunks", fields: map[string]string{"category": "finance"}, filename: "a.txt", err: service.ErrNoChunks, status: http.StatusBadRequest, expectError: service.ErrNoChunks.Error()},
		{description: "bad path", fields: map[string]string{"category": "../x"}, filename: "a.txt", err: fs.ErrInvalidPath, status: http.StatusBadRequest, expectError: "invalid category or file name"},
		{description: "index failure", fields: map[string]string{"category": "finance"}, filename: "a.txt", err: errors.New("disk full"), status: http.StatusInternalServerError, expectError: "failed to process upload"},
	}
	for _, testCase := range testCases {
		svc := &fakeService{uploadErr: testCase.err}
		handler := New(svc, WithLogf(t.Logf)).Handler()
		body, contentType := multipartBody(t, testCase.fields, testCase.filename, "Revenue grew.")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec, resp := do(t, handler, req)
		assert.Equal(t, testCase.status, rec.Code, testCase.description)
		if testCase.expectError != "" {
			assert.Equal(t, testCase.expectError, resp["error"], testCase.description)
			assert.NotContains(t, rec.Body.String(), "goroutine", testCase.description)
			continue
		}
		assert.NotEmpty(t, resp["message"], testCase.description)
		require.NotNil(t, svc.uploadReq, testCase.description)
		assert.Equal(t, "report.txt", svc.uploadReq.Filename)
		assert.Equal(t, "Revenue grew.", string(svc.uploadReq.Data))
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	handler := New(&fakeService{}, WithLogf(t.Logf)).Handler()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := do(t, handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "category and file are required", resp["error"])
}

func TestPrompt(t *testing.T) {
	svc := &fakeService{answer: &service.Answer{
		Answer:  "Revenue grew ten percent.",
		Sources: []document.Source{{Filename: "report.txt", Category: "finance", ChunkIndex: 2, Content: "secret text", Score: 0.9}},
	}}
	handler := New(svc, WithLogf(t.Logf)).Handler()

	req := httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(`{"question":"How did revenue change?"}`))
	rec, resp := do(t, handler, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Revenue grew ten percent.", resp["answer"])
	sources, ok := resp["sources"].([]any)
	require.True(t, ok)
	require.Len(t, sources, 1)
	assert.Equal(t, map[string]any{"filename": "report.txt", "category": "finance", "chunkIndex": float64(2)}, sources[0])
}

func TestPrompt_Errors(t *testing.T) {
	testCases := []struct {
		description string
		body        string
		err         error
		status      int
		expectError string
	}{
		{description: "blank question", body: `{"question":""}`, status: http.StatusBadRequest, expectError: "question is required"},
		{description: "whitespace question", body: `{"question":"   "}`, status: http.StatusBadRequest, expectError: "question is required"},
		{description: "invalid json", body: `{"question":`, status: http.StatusBadRequest, expectError: "invalid JSON body"},
		{description: "embedding failure", body: `{"question":"q"}`, err: service.ErrEmbedding, status: http.StatusInternalServerError, expectError: "failed to answer question"},
	}
	for _, testCase := range testCases {
		handler := New(&fakeService{askErr: testCase.err}, WithLogf(t.Logf)).Handler()
		req := httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(testCase.body))
		rec, resp := do(t, handler, req)
		assert.Equal(t, testCase.status, rec.Code, testCase.description)
		assert.Equal(t, testCase.expectError, resp["error"], testCase.description)
	}
}

func TestRechunk(t *testing.T) {
	svc := &fakeService{}
	handler := New(svc, WithLogf(t.Logf)).Handler()

	req := httptest.NewRequest(http.MethodPost, "/rechunk", strings.NewReader(`{"chunkLength":500,"specificCategory":"hr"}`))
	rec, resp := do(t, handler, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, resp["documents"])
	assert.EqualValues(t, 7, resp["chunks"])
	assert.NotEmpty(t, resp["message"])
	require.NotNil(t, svc.rechunkReq.ChunkLength)
	assert.Equal(t, 500, *svc.rechunkReq.ChunkLength)
	assert.Nil(t, svc.rechunkReq.ChunkOverlap)
	assert.Equal(t, "hr", svc.rechunkReq.SpecificCategory)

	req = httptest.NewRequest(http.MethodPost, "/rechunk", http.NoBody)
	rec, _ = do(t, handler, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRechunk_Errors(t *testing.T) {
	handler := New(&fakeService{rechunkErr: service.ErrNoDocuments}, WithLogf(t.Logf)).Handler()
	req := httptest.NewRequest(http.MethodPost, "/rechunk", strings.NewReader(`{"specificCategory":"nothing"}`))
	rec, resp := do(t, handler, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"message": "No matching documents found"}, resp)

	handler = New(&fakeService{rechunkErr: service.ErrInvalidChunking}, WithLogf(t.Logf)).Handler()
	req = httptest.NewRequest(http.MethodPost, "/rechunk", strings.NewReader(`{"chunkLength":10,"chunkOverlap":10}`))
	rec, _ = do(t, handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	handler = New(&fakeService{}, WithLogf(t.Logf)).Handler()
	req = httptest.NewRequest(http.MethodPost, "/rechunk", strings.NewReader(`[`))
	rec, _ = do(t, handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	handler := New(&fakeService{answer: &service.Answer{Answer: "x", Fallback: true}}, WithLogf(t.Logf)).Handler()

	rec, resp := do(t, handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])

	do(t, handler, httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(`{"question":"q"}`)))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	text := rec.Body.String()
	assert.Contains(t, text, `docrag_http_requests_total{route="GET /healthz",status="200"} 1`)
	assert.Contains(t, text, "docrag_fallback_answers_total 1")
}

func TestRequestID(t *testing.T) {
	handler := New(&fakeService{}, WithLogf(t.Logf)).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestMethodNotAllowed(t *testing.T) {
	handler := New(&fakeService{}, WithLogf(t.Logf)).Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prompt", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
