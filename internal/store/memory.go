package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/grovekit/grove/internal/rank"
)

// Memory is an in-memory store with the same contract and ordering as
// Postgres. It is the reference implementation for retrieval semantics:
// search delegates scoring and tie-breaking to rank.Top, which the
// pgvector push-down must match given identical inputs.
//
// Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	dim       int
	documents map[string]Document // keyed by ownerID + "/" + documentID
	chunks    map[string]Chunk    // keyed by chunk id
	now       func() time.Time
}

// NewMemory creates an empty in-memory store for dimension dim.
func NewMemory(dim int) *Memory {
	return &Memory{
		dim:       dim,
		documents: make(map[string]Document),
		chunks:    make(map[string]Chunk),
		now:       time.Now,
	}
}

func docKey(ownerID, documentID string) string {
	return ownerID + "/" + documentID
}

// CreateDocument inserts or refreshes a document row.
func (s *Memory) CreateDocument(_ context.Context, doc Document) error {
	if doc.OwnerID == "" {
		return ErrOwnerRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.OwnerID, doc.ID)
	now := s.now()
	if existing, ok := s.documents[key]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.documents[key] = doc
	return nil
}

// GetDocument returns one document scoped by owner.
func (s *Memory) GetDocument(_ context.Context, ownerID, documentID string) (Document, error) {
	if ownerID == "" {
		return Document{}, ErrOwnerRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[docKey(ownerID, documentID)]
	if !ok {
		return Document{}, fmt.Errorf("%w: document %q", ErrNotFound, documentID)
	}
	assertOwner(doc.OwnerID, ownerID)
	return doc, nil
}

// ListDocumentsByOwner returns all of an owner's documents, newest first.
func (s *Memory) ListDocumentsByOwner(_ context.Context, ownerID string) ([]Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// SetDocumentStatus transitions a document's processing status.
func (s *Memory) SetDocumentStatus(_ context.Context, ownerID, documentID string, status Status) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(ownerID, documentID)
	doc, ok := s.documents[key]
	if !ok {
		return fmt.Errorf("%w: document %q", ErrNotFound, documentID)
	}
	doc.Status = status
	doc.UpdatedAt = s.now()
	s.documents[key] = doc
	return nil
}

// UpsertChunks writes chunks keyed by chunk id, overwriting prior rows.
func (s *Memory) UpsertChunks(_ context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.OwnerID == "" {
			return ErrOwnerRequired
		}
		if len(chunk.Embedding) != s.dim {
			return fmt.Errorf("%w: chunk %q has %d components, store requires %d",
				rank.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dim)
		}

		now := s.now()
		if existing, ok := s.chunks[chunk.ID]; ok {
			chunk.CreatedAt = existing.CreatedAt
		} else {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// ChunksByOwner returns every chunk belonging to ownerID, ordered by
// document and ordinal.
func (s *Memory) ChunksByOwner(_ context.Context, ownerID string) ([]Chunk, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []Chunk
	for _, chunk := range s.chunks {
		if chunk.OwnerID == ownerID {
			assertOwner(chunk.OwnerID, ownerID)
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].Ordinal < chunks[j].Ordinal
	})
	return chunks, nil
}

// SearchChunks computes cosine similarity in-process over the owner's
// chunks and returns the top-limit results.
func (s *Memory) SearchChunks(_ context.Context, query []float32, ownerID string, limit int) ([]ScoredChunk, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d components, store requires %d",
			rank.ErrDimensionMismatch, len(query), s.dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []rank.Item
	byID := make(map[string]Chunk)
	for _, chunk := range s.chunks {
		if chunk.OwnerID != ownerID {
			continue
		}
		assertOwner(chunk.OwnerID, ownerID)
		items = append(items, rank.Item{ID: chunk.ID, Vector: chunk.Embedding})
		byID[chunk.ID] = chunk
	}

	scored, err := rank.Top(query, items, limit)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		chunk := byID[sc.ID]
		name := ""
		if doc, ok := s.documents[docKey(ownerID, chunk.DocumentID)]; ok {
			name = doc.DisplayName
		}
		results = append(results, ScoredChunk{Chunk: chunk, DocumentName: name, Score: sc.Score})
	}
	return results, nil
}

// CountChunksByDocument reports how many chunks a document currently has.
func (s *Memory) CountChunksByDocument(_ context.Context, ownerID, documentID string) (int, error) {
	if ownerID == "" {
		return 0, ErrOwnerRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, chunk := range s.chunks {
		if chunk.OwnerID == ownerID && chunk.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}
