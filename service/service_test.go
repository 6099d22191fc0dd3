package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/docrag/answer"
	"github.com/viant/docrag/embeddings/simple"
	"github.com/viant/docrag/indexer/fs"
	"github.com/viant/docrag/retriever"
	"github.com/viant/docrag/vectordb/mem"
)

type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func newTestService(t *testing.T, gen *fakeGenerator) (*Service, *mem.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := mem.New()
	require.NoError(t, err)
	opts := []Option{
		WithIndex(store),
		WithEmbedder(simple.New(64)),
		WithLoader(fs.NewLoader(root, fs.WithLogf(t.Logf))),
		WithChunking(120, 20),
		WithEmbeddingModel("simple:64"),
		WithLogf(t.Logf),
	}
	if gen != nil {
		opts = append(opts, WithGenerator(gen))
	}
	svc, err := New(opts...)
	require.NoError(t, err)
	return svc, store, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestNew_Validation(t *testing.T) {
	store, err := mem.New()
	require.NoError(t, err)
	loader := fs.NewLoader(t.TempDir())

	_, err = New(WithEmbedder(simple.New(8)), WithLoader(loader))
	assert.Error(t, err)
	_, err = New(WithIndex(store), WithLoader(loader))
	assert.Error(t, err)
	_, err = New(WithIndex(store), WithEmbedder(simple.New(8)))
	assert.Error(t, err)
	_, err = New(WithIndex(store), WithEmbedder(simple.New(8)), WithLoader(loader), WithChunking(100, 100))
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	svc, store, root := newTestService(t, nil)

	result, err := svc.Upload(ctx, &UploadRequest{
		Category: "finance/q1",
		Filename: "report.txt",
		Data:     []byte("Revenue grew by ten percent. Costs were flat. Margins improved across every region."),
	})
	require.NoError(t, err)
	assert.Equal(t, "finance/q1", result.Category)
	assert.Equal(t, "report.txt", result.Filename)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 1, result.Stored)

	_, err = os.Stat(filepath.Join(root, "finance", "q1", "report.txt"))
	require.NoError(t, err)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Upload(ctx, &UploadRequest{Category: "finance/q1", Filename: "report.txt", Data: []byte("Revenue grew by ten percent. Costs were flat. Margins improved across every region.")})
	require.NoError(t, err)
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpload_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, nil)

	testCases := []struct {
		description string
		req         *UploadRequest
		expect      error
	}{
		{description: "missing category", req: &UploadRequest{Filename: "a.txt", Data: []byte("x.")}, expect: ErrMissingUpload},
		{description: "missing file", req: &UploadRequest{Category: "a"}, expect: ErrMissingUpload},
		{description: "parent escape", req: &UploadRequest{Category: "../etc", Filename: "a.txt", Data: []byte("Leave policy applies to everyone.")}, expect: fs.ErrInvalidPath},
		{description: "blank text", req: &UploadRequest{Category: "a", Filename: "blank.txt", Data: []byte("   \n ")}, expect: ErrNoText},
		{description: "unsupported", req: &UploadRequest{Category: "a", Filename: "image.png", Data: []byte{0x89, 0x50}}, expect: ErrNoText},
	}
	for _, testCase := range testCases {
		_, err := svc.Upload(ctx, testCase.req)
		assert.True(t, errors.Is(err, testCase.expect), "%s: %v", testCase.description, err)
	}
}

func TestRechunk(t *testing.T) {
	ctx := context.Background()
	svc, store, root := newTestService(t, nil)
	writeFile(t, root, "hr/policy.md", strings.Repeat("Employees accrue leave monthly. ", 10))
	writeFile(t, root, "hr/benefits/health.txt", "Health cover starts on day one.")
	writeFile(t, root, "legal/terms.txt", "Terms apply to all customers.")

	result, err := svc.Rechunk(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, 120, result.ChunkLength)
	assert.Equal(t, 20, result.ChunkOverlap)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Stored, count)

	length, overlap := 60, 0
	result, err = svc.Rechunk(ctx, &RechunkRequest{ChunkLength: &length, ChunkOverlap: &overlap, SpecificCategory: "hr"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 60, result.ChunkLength)

	result, err = svc.Rechunk(ctx, &RechunkRequest{SpecificFile: "terms.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)
}

func TestUpload_RejectedFileNotSaved(t *testing.T) {
	ctx := context.Background()
	svc, _, root := newTestService(t, nil)

	_, err := svc.Upload(ctx, &UploadRequest{Category: "media", Filename: "image.png", Data: []byte{0x89, 0x50}})
	require.ErrorIs(t, err, ErrNoText)
	_, err = svc.Upload(ctx, &UploadRequest{Category: "media", Filename: "blank.txt", Data: []byte(" ")})
	require.ErrorIs(t, err, ErrNoText)

	_, err = os.Stat(filepath.Join(root, "media"))
	assert.True(t, os.IsNotExist(err), "rejected uploads must not reach the corpus: %v", err)
}

func TestRechunk_ReportsStaleChunks(t *testing.T) {
	ctx := context.Background()
	svc, store, root := newTestService(t, nil)
	writeFile(t, root, "hr/policy.md", strings.Repeat("Employees accrue leave monthly. ", 10))
	writeFile(t, root, "legal/terms.txt", "Terms apply to all customers.")

	length, overlap := 60, 0
	fine, err := svc.Rechunk(ctx, &RechunkRequest{ChunkLength: &length, ChunkOverlap: &overlap})
	require.NoError(t, err)
	assert.Equal(t, 0, fine.Stale)

	coarse, err := svc.Rechunk(ctx, &RechunkRequest{SpecificCategory: "hr"})
	require.NoError(t, err)
	require.Greater(t, fine.Chunks, coarse.Chunks+1)
	stale, err := store.StaleChunks(ctx, "hr/policy.md")
	require.NoError(t, err)
	assert.Len(t, stale, fine.Chunks-1-coarse.Chunks)
	assert.Equal(t, len(stale), coarse.Stale)

	again, err := svc.Rechunk(ctx, &RechunkRequest{SpecificCategory: "legal"})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Stale)
}

func TestRechunk_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, root := newTestService(t, nil)
	writeFile(t, root, "hr/policy.md", "Employees accrue leave monthly.")

	_, err := svc.Rechunk(ctx, &RechunkRequest{SpecificCategory: "missing"})
	assert.ErrorIs(t, err, ErrNoDocuments)

	length, overlap := 50, 50
	_, err = svc.Rechunk(ctx, &RechunkRequest{ChunkLength: &length, ChunkOverlap: &overlap})
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "Leave accrues monthly."}
	svc, _, root := newTestService(t, gen)
	writeFile(t, root, "hr/policy.md", "Employees accrue leave monthly.")
	_, err := svc.Rechunk(ctx, nil)
	require.NoError(t, err)

	got, err := svc.Ask(ctx, "How does leave accrue?")
	require.NoError(t, err)
	assert.Equal(t, "Leave accrues monthly.", got.Answer)
	assert.False(t, got.Fallback)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "policy.md", got.Sources[0].Filename)
	assert.Equal(t, "hr", got.Sources[0].Category)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Source: policy.md")

	_, err = svc.Ask(ctx, "  ")
	assert.ErrorIs(t, err, ErrMissingQuestion)
}

func TestAsk_EmptyIndexStillGenerates(t *testing.T) {
	gen := &fakeGenerator{reply: answer.Fallback}
	svc, _, _ := newTestService(t, gen)

	got, err := svc.Ask(context.Background(), "Anything?")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Equal(t, answer.Fallback, got.Answer)
	assert.Empty(t, got.Sources)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], retriever.NoResults)
}

func TestAsk_NoGenerator(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	got, err := svc.Ask(context.Background(), "Anything?")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
}
