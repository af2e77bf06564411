package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/answer"
	"github.com/grovekit/grove/internal/embed"
	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/store"
	"github.com/grovekit/grove/internal/testutil"
)

const testDim = 8

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

type fixture struct {
	orch *Orchestrator
	mem  *store.Memory
	gen  *fakeGenerator
}

func setup(t *testing.T, provider embed.Embedder) *fixture {
	t.Helper()

	if provider == nil {
		provider = &testutil.HashEmbedder{Dim: testDim}
	}
	client, err := embed.New(provider, embed.Config{Dimension: testDim}, log.NewNop())
	require.NoError(t, err)

	gen := &fakeGenerator{response: "a grounded answer"}
	answerer, err := answer.New(gen, answer.WithLogger(log.NewNop()))
	require.NoError(t, err)

	mem := store.NewMemory(testDim)
	orch, err := New(client, mem, answerer, 3, log.NewNop())
	require.NoError(t, err)
	return &fixture{orch: orch, mem: mem, gen: gen}
}

func seedCorpus(t *testing.T, mem *store.Memory, owner string, contents ...string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, mem.CreateDocument(ctx, store.Document{
		ID: "doc-1", OwnerID: owner, DisplayName: "corpus.txt",
		Status: store.StatusProcessed,
	}))

	embedder := &testutil.HashEmbedder{Dim: testDim}
	chunks := make([]store.Chunk, len(contents))
	for i, content := range contents {
		v, err := embedder.Embed(ctx, content)
		require.NoError(t, err)
		chunks[i] = store.Chunk{
			ID: content, DocumentID: "doc-1", OwnerID: owner,
			Ordinal: i, Content: content, Embedding: v,
		}
	}
	require.NoError(t, mem.UpsertChunks(ctx, chunks))
}

func TestRun_AnswersFromOwnCorpus(t *testing.T) {
	f := setup(t, nil)
	seedCorpus(t, f.mem, "alice", "chunk one", "chunk two", "chunk three", "chunk four")

	resp, err := f.orch.Run(context.Background(), Request{OwnerID: "alice", Query: "chunk one"})
	require.NoError(t, err)

	assert.Equal(t, "chunk one", resp.Query)
	assert.Equal(t, "a grounded answer", resp.Answer)
	assert.False(t, resp.Degraded)
	// topK is 3, corpus has 4 chunks.
	assert.Equal(t, 3, resp.ResultCount)
	assert.Len(t, resp.CitedChunkIDs, 3)
	// The exact-match chunk ranks first: the fake embedder is deterministic.
	assert.Equal(t, "chunk one", resp.CitedChunkIDs[0])
}

func TestRun_EmptyCorpusStillAnswers(t *testing.T) {
	f := setup(t, nil)

	resp, err := f.orch.Run(context.Background(), Request{OwnerID: "nobody", Query: "anything?"})
	require.NoError(t, err)

	assert.Equal(t, answer.NoContextAnswer, resp.Answer)
	assert.False(t, resp.Degraded)
	assert.Zero(t, resp.ResultCount)
	assert.Empty(t, resp.CitedChunkIDs)
	// No context means no provider call.
	assert.Zero(t, f.gen.calls)
}

func TestRun_OwnerIsolation(t *testing.T) {
	f := setup(t, nil)
	seedCorpus(t, f.mem, "alice", "alice private notes")

	resp, err := f.orch.Run(context.Background(), Request{OwnerID: "bob", Query: "alice private notes"})
	require.NoError(t, err)
	assert.Zero(t, resp.ResultCount)
	assert.Equal(t, answer.NoContextAnswer, resp.Answer)
}

func TestRun_Validation(t *testing.T) {
	f := setup(t, nil)

	_, err := f.orch.Run(context.Background(), Request{Query: "q"})
	assert.ErrorIs(t, err, ErrOwnerRequired)

	_, err = f.orch.Run(context.Background(), Request{OwnerID: "alice"})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRun_DegradedQueryEmbeddingSkipsRetrieval(t *testing.T) {
	f := setup(t, nil)
	seedCorpus(t, f.mem, "alice", "some chunk")

	// The fake provider fails on the "fail:" prefix, degrading the query
	// embedding to the zero vector.
	resp, err := f.orch.Run(context.Background(), Request{OwnerID: "alice", Query: "fail: broken"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, answer.NoContextAnswer, resp.Answer)
	assert.Zero(t, resp.ResultCount)
	assert.Zero(t, f.gen.calls)
}

func TestRun_GenerationFailureDegradesNotFails(t *testing.T) {
	f := setup(t, nil)
	f.gen.err = errors.New("provider down")
	seedCorpus(t, f.mem, "alice", "relevant chunk")

	resp, err := f.orch.Run(context.Background(), Request{OwnerID: "alice", Query: "relevant chunk"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, answer.Fallback, resp.Answer)
	// Retrieval worked, so citations survive.
	assert.Equal(t, 1, resp.ResultCount)
	assert.Equal(t, []string{"relevant chunk"}, resp.CitedChunkIDs)
}

func TestNew_Validation(t *testing.T) {
	f := setup(t, nil)

	_, err := New(nil, f.mem, f.orch.answerer, 3, log.NewNop())
	assert.Error(t, err)

	client, err := embed.New(&testutil.HashEmbedder{Dim: testDim},
		embed.Config{Dimension: testDim}, log.NewNop())
	require.NoError(t, err)

	_, err = New(client, f.mem, f.orch.answerer, -1, log.NewNop())
	assert.Error(t, err)

	o, err := New(client, f.mem, f.orch.answerer, 0, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, o.topK)
}
