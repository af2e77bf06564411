// Package store persists documents and their embedded chunks.
//
// Two implementations ship: Postgres (pgx + pgvector, similarity push-down
// via the `<=>` cosine distance operator) and Memory (in-process reference
// semantics used by tests and small deployments). Both order search results
// identically: score descending, chunk id ascending on ties.
//
// Owner scoping is the single isolation boundary in the system. Every read
// requires an owner id and carries the owner predicate in the query itself;
// a row crossing that boundary is a programming error, not a soft failure,
// and trips an assertion.
package store

import (
	"errors"
	"fmt"
	"time"
)

// Status is the document processing state.
type Status string

// Document status values. Transitions are owned by the ingestion
// orchestrator: uploaded → processing → processed | failed.
const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

var (
	// ErrNotFound indicates the requested row does not exist for the owner.
	ErrNotFound = errors.New("not found")

	// ErrOwnerRequired indicates a read or write without an owner scope.
	ErrOwnerRequired = errors.New("owner id is required")

	// ErrInvalidLimit indicates a negative search limit.
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// Document is one uploaded file's metadata row. Chunks reference it by
// (owner id, document id); the raw bytes live in the blob store under
// Bucket/Key.
type Document struct {
	ID          string
	OwnerID     string
	DisplayName string
	MimeType    string
	Status      Status
	Bucket      string
	Key         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is the unit of embedding and retrieval: a bounded slice of one
// document's text with its embedding vector.
type Chunk struct {
	ID         string
	DocumentID string
	OwnerID    string
	Ordinal    int
	Content    string
	Metadata   map[string]string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ScoredChunk is a Chunk with its similarity score in [-1, 1] relative to
// one query vector, plus the parent document's display name for context
// assembly. It exists only for the duration of a retrieval call.
type ScoredChunk struct {
	Chunk
	DocumentName string
	Score        float64
}

// assertOwner panics when a row crosses the owner isolation boundary.
// This is a security invariant: returning foreign rows must surface as a
// crash during development and testing, never as quietly wrong results.
func assertOwner(got, want string) {
	if got != want {
		panic(fmt.Sprintf("store: isolation violation: row owner %q leaked into scope %q", got, want))
	}
}
