package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docrag/document"
	"github.com/viant/docrag/retriever"
	"github.com/viant/docrag/service"
)

type fakeService struct {
	k          int
	rechunkReq *service.RechunkRequest
	rechunkErr error
}

func (f *fakeService) Ask(ctx context.Context, question string) (*service.Answer, error) {
	return &service.Answer{Answer: "Leave accrues monthly.", Sources: []document.Source{{Filename: "policy.md", Category: "hr"}}}, nil
}

func (f *fakeService) Retrieve(ctx context.Context, question string, k int) (*retriever.Result, error) {
	f.k = k
	sources := []document.Source{{Filename: "policy.md", Category: "hr", ChunkIndex: 1, Content: "Leave accrues monthly. Überstunden are paid."}}
	return &retriever.Result{Context: retriever.BuildContext(sources), Sources: sources}, nil
}

func (f *fakeService) Rechunk(ctx context.Context, req *service.RechunkRequest) (*service.RechunkResult, error) {
	f.rechunkReq = req
	if f.rechunkErr != nil {
		return nil, f.rechunkErr
	}
	return &service.RechunkResult{Documents: 1, Chunks: 2, Stored: 2, ChunkLength: 300, ChunkOverlap: 30}, nil
}

func TestHandler_Ask(t *testing.T) {
	h := newHandler(&fakeService{}, true)
	h.logf = t.Logf

	out, err := h.ask(context.Background(), &AskInput{Question: "How does leave accrue?"})
	require.NoError(t, err)
	assert.Equal(t, "Leave accrues monthly.", out.Answer)
	assert.Len(t, out.Sources, 1)

	_, err = h.ask(context.Background(), &AskInput{Question: " "})
	assert.ErrorIs(t, err, service.ErrMissingQuestion)
}

func TestHandler_Search(t *testing.T) {
	svc := &fakeService{}
	h := newHandler(svc, false)

	out, err := h.search(context.Background(), &SearchInput{Question: "leave", K: 3, MaxBytes: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.k)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "Leave", out.Sources[0].Content)
	assert.Contains(t, out.Context, "Source: policy.md")

	_, err = h.search(context.Background(), nil)
	assert.ErrorIs(t, err, service.ErrMissingQuestion)
}

func TestHandler_Rechunk(t *testing.T) {
	svc := &fakeService{}
	h := newHandler(svc, false)
	length := 300

	out, err := h.rechunk(context.Background(), &RechunkInput{ChunkLength: &length, SpecificCategory: "hr"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Chunks)
	assert.Equal(t, 300, *svc.rechunkReq.ChunkLength)
	assert.Equal(t, "hr", svc.rechunkReq.SpecificCategory)

	svc.rechunkErr = service.ErrNoDocuments
	out, err = h.rechunk(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No matching documents found", out.Message)
}

func TestClipText(t *testing.T) {
	assert.Equal(t, "abc", clipText("abc", 10))
	assert.Equal(t, "ab", clipText("abc", 2))
	assert.Equal(t, "", clipText("Über", 1))
	assert.Equal(t, "Üb", clipText("Über", 3))
}
