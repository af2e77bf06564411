package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/rank"
)

const testDim = 4

func vec(components ...float32) []float32 {
	v := make([]float32, testDim)
	copy(v, components)
	return v
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	s := NewMemory(testDim)
	require.NoError(t, s.CreateDocument(context.Background(), Document{
		ID:          "doc-1",
		OwnerID:     "alice",
		DisplayName: "notes.txt",
		MimeType:    "text/plain",
		Status:      StatusUploaded,
		Bucket:      "uploads",
		Key:         "alice/doc-1/notes.txt",
	}))
	return s
}

func chunkFor(owner, doc, id string, ordinal int, embedding []float32) Chunk {
	return Chunk{
		ID:         id,
		DocumentID: doc,
		OwnerID:    owner,
		Ordinal:    ordinal,
		Content:    "content of " + id,
		Metadata:   map[string]string{"source": doc},
		Embedding:  embedding,
	}
}

func TestMemory_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	doc, err := s.GetDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, doc.Status)
	assert.Equal(t, "notes.txt", doc.DisplayName)

	require.NoError(t, s.SetDocumentStatus(ctx, "alice", "doc-1", StatusProcessing))
	doc, err = s.GetDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, doc.Status)

	_, err = s.GetDocument(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SetDocumentStatus(ctx, "alice", "missing", StatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_DocumentOwnerScope(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	// Same document id under a different owner is a distinct row.
	_, err := s.GetDocument(ctx, "mallory", "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetDocument(ctx, "", "doc-1")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestMemory_UpsertChunksIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	chunks := []Chunk{
		chunkFor("alice", "doc-1", "c-1", 0, vec(1)),
		chunkFor("alice", "doc-1", "c-2", 1, vec(0, 1)),
		chunkFor("alice", "doc-1", "c-3", 2, vec(0, 0, 1)),
	}
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	count, err := s.CountChunksByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Re-ingesting with the same ids overwrites, never duplicates.
	chunks[0].Content = "revised content"
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	count, err = s.CountChunksByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := s.ChunksByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "revised content", stored[0].Content)
}

func TestMemory_UpsertRejectsWrongDimension(t *testing.T) {
	s := newTestMemory(t)

	err := s.UpsertChunks(context.Background(), []Chunk{
		chunkFor("alice", "doc-1", "c-bad", 0, []float32{1, 2}),
	})
	assert.ErrorIs(t, err, rank.ErrDimensionMismatch)
}

func TestMemory_SearchScopesToOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)
	require.NoError(t, s.CreateDocument(ctx, Document{
		ID: "doc-b", OwnerID: "bob", DisplayName: "bob.txt", Status: StatusProcessed,
	}))

	require.NoError(t, s.UpsertChunks(ctx, []Chunk{
		chunkFor("alice", "doc-1", "a-1", 0, vec(1)),
		chunkFor("bob", "doc-b", "b-1", 0, vec(1)),
	}))

	results, err := s.SearchChunks(ctx, vec(1), "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a-1", results[0].ID)
	assert.Equal(t, "alice", results[0].OwnerID)
	assert.Equal(t, "notes.txt", results[0].DocumentName)
}

func TestMemory_SearchOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	require.NoError(t, s.UpsertChunks(ctx, []Chunk{
		chunkFor("alice", "doc-1", "c-ortho", 0, vec(0, 1)),
		chunkFor("alice", "doc-1", "c-exact", 1, vec(1)),
		chunkFor("alice", "doc-1", "c-mid", 2, vec(1, 1)),
	}))

	results, err := s.SearchChunks(ctx, vec(1), "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "c-exact", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "c-mid", results[1].ID)
	assert.Equal(t, "c-ortho", results[2].ID)

	limited, err := s.SearchChunks(ctx, vec(1), "alice", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	empty, err := s.SearchChunks(ctx, vec(1), "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.SearchChunks(ctx, vec(1), "alice", -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestMemory_SearchDeterministicOnTies(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	// Zero vectors (degraded embeddings) all score 0 and must order by id.
	require.NoError(t, s.UpsertChunks(ctx, []Chunk{
		chunkFor("alice", "doc-1", "z-3", 0, vec()),
		chunkFor("alice", "doc-1", "z-1", 1, vec()),
		chunkFor("alice", "doc-1", "z-2", 2, vec()),
	}))

	for range 5 {
		results, err := s.SearchChunks(ctx, vec(1), "alice", 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "z-1", results[0].ID)
		assert.Equal(t, "z-2", results[1].ID)
		assert.Equal(t, "z-3", results[2].ID)
		for _, r := range results {
			assert.Zero(t, r.Score)
		}
	}
}

func TestMemory_SearchEmptyCorpus(t *testing.T) {
	s := NewMemory(testDim)

	results, err := s.SearchChunks(context.Background(), vec(1), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemory_SearchRejectsWrongQueryDimension(t *testing.T) {
	s := newTestMemory(t)

	_, err := s.SearchChunks(context.Background(), []float32{1, 2}, "alice", 5)
	assert.ErrorIs(t, err, rank.ErrDimensionMismatch)
}

func TestMemory_ConcurrentUpsertsAndReads(t *testing.T) {
	ctx := context.Background()
	s := newTestMemory(t)

	done := make(chan error, 20)
	for i := range 10 {
		go func() {
			done <- s.UpsertChunks(ctx, []Chunk{
				chunkFor("alice", "doc-1", fmt.Sprintf("c-%d", i), i, vec(float32(i+1))),
			})
		}()
		go func() {
			_, err := s.SearchChunks(ctx, vec(1), "alice", 5)
			done <- err
		}()
	}
	for range 20 {
		require.NoError(t, <-done)
	}

	count, err := s.CountChunksByDocument(ctx, "alice", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
