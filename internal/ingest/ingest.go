// Package ingest orchestrates document processing: download, extract,
// chunk, embed, persist.
//
// Status machine per document: uploaded → processing → processed | failed.
// A document reaches processed only after every chunk write the store
// accepted is durable. Store failures force failed; embedding degradation
// does not, the affected chunks are persisted with the zero vector and
// ranked last at query time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/grovekit/grove/internal/blob"
	"github.com/grovekit/grove/internal/chunker"
	"github.com/grovekit/grove/internal/embed"
	"github.com/grovekit/grove/internal/extract"
	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/store"
)

var (
	// ErrOwnerRequired indicates a request without an owner id.
	ErrOwnerRequired = errors.New("owner id is required")

	// ErrDocumentRequired indicates a request without a document id.
	ErrDocumentRequired = errors.New("document id is required")
)

// Store is the persistence surface ingestion needs.
type Store interface {
	CreateDocument(ctx context.Context, doc store.Document) error
	SetDocumentStatus(ctx context.Context, ownerID, documentID string, status store.Status) error
	UpsertChunks(ctx context.Context, chunks []store.Chunk) error
}

// Embedder turns chunk texts into vectors, degrading instead of failing.
// attrs are logging context passed through to degradation records.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string, attrs ...any) []embed.Result
}

// Request identifies one uploaded document to process.
type Request struct {
	OwnerID     string
	DocumentID  string
	DisplayName string
	MimeType    string
	Locator     blob.Locator
}

// Response reports the outcome of one ingestion.
type Response struct {
	DocumentID     string `json:"document_id"`
	Status         string `json:"status"`
	ChunkCount     int    `json:"chunk_count"`
	DegradedChunks int    `json:"degraded_chunks,omitempty"`
}

// Orchestrator runs the ingestion pipeline.
type Orchestrator struct {
	blobs    blob.Store
	embedder Embedder
	store    Store
	chunking chunker.Config
	logger   log.Logger
}

// New creates an ingestion orchestrator. chunking is validated here so a
// bad size/overlap pair fails at startup, not per request.
func New(blobs blob.Store, embedder Embedder, st Store, chunking chunker.Config, logger log.Logger) (*Orchestrator, error) {
	if blobs == nil || embedder == nil || st == nil {
		return nil, fmt.Errorf("ingest: blob store, embedder and store are required")
	}
	if err := chunking.Validate(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		blobs:    blobs,
		embedder: embedder,
		store:    st,
		chunking: chunking,
		logger:   logger.With("component", "ingest"),
	}, nil
}

// Run processes one document end to end. The returned error is non-nil
// only when the document could not be processed; in that case its status
// has been set to failed (best effort) before returning.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Response, error) {
	if req.OwnerID == "" {
		return Response{}, ErrOwnerRequired
	}
	if req.DocumentID == "" {
		return Response{}, ErrDocumentRequired
	}

	logger := o.logger.With("owner_id", req.OwnerID, "document_id", req.DocumentID)

	if err := o.store.SetDocumentStatus(ctx, req.OwnerID, req.DocumentID, store.StatusProcessing); err != nil {
		return Response{}, fmt.Errorf("marking document processing: %w", err)
	}

	chunks, degraded, err := o.process(ctx, req, logger)
	if err != nil {
		o.fail(ctx, req, logger, err)
		return Response{}, err
	}

	if err := o.store.SetDocumentStatus(ctx, req.OwnerID, req.DocumentID, store.StatusProcessed); err != nil {
		return Response{}, fmt.Errorf("marking document processed: %w", err)
	}

	logger.Info("document processed", "chunks", len(chunks), "degraded_chunks", degraded)
	return Response{
		DocumentID:     req.DocumentID,
		Status:         string(store.StatusProcessed),
		ChunkCount:     len(chunks),
		DegradedChunks: degraded,
	}, nil
}

// process runs download → extract → chunk → embed → upsert and returns the
// persisted chunks plus how many carry a degraded (zero) embedding.
func (o *Orchestrator) process(ctx context.Context, req Request, logger log.Logger) ([]store.Chunk, int, error) {
	data, err := o.blobs.Download(ctx, req.Locator)
	if err != nil {
		return nil, 0, fmt.Errorf("downloading %s: %w", req.Locator, err)
	}

	text, err := extract.Text(data, req.MimeType)
	if err != nil {
		return nil, 0, fmt.Errorf("extracting text: %w", err)
	}

	pieces := slices.Collect(chunker.Split(text, o.chunking))
	if len(pieces) == 0 {
		logger.Info("document has no chunkable text")
		return nil, 0, nil
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	results := o.embedder.EmbedMany(ctx, texts, "document_id", req.DocumentID)

	source := req.DisplayName
	if source == "" {
		source = req.Locator.Key
	}

	degraded := 0
	chunks := make([]store.Chunk, len(pieces))
	for i, p := range pieces {
		if results[i].Degraded {
			degraded++
			logger.Warn("chunk embedding degraded to zero vector",
				"ordinal", p.Ordinal, "reason", results[i].Reason)
		}
		chunks[i] = store.Chunk{
			ID:         chunkID(req.OwnerID, req.DocumentID, p.Ordinal),
			DocumentID: req.DocumentID,
			OwnerID:    req.OwnerID,
			Ordinal:    p.Ordinal,
			Content:    p.Content,
			Metadata: map[string]string{
				"source":  source,
				"ordinal": strconv.Itoa(p.Ordinal),
			},
			Embedding: results[i].Vector,
		}
	}

	if err := o.store.UpsertChunks(ctx, chunks); err != nil {
		return nil, 0, fmt.Errorf("persisting chunks: %w", err)
	}
	return chunks, degraded, nil
}

// fail marks the document failed. The original error is what the caller
// sees; a status-write failure on top of it is only logged.
func (o *Orchestrator) fail(ctx context.Context, req Request, logger log.Logger, cause error) {
	logger.Error("document processing failed", "error", cause)
	if err := o.store.SetDocumentStatus(ctx, req.OwnerID, req.DocumentID, store.StatusFailed); err != nil {
		logger.Error("failed to mark document failed", "error", err)
	}
}

// chunkID derives a stable chunk id from its coordinates, so re-ingesting
// a document overwrites its chunks instead of accumulating duplicates.
func chunkID(ownerID, documentID string, ordinal int) string {
	name := ownerID + "/" + documentID + "/" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
