// Package query orchestrates one retrieval-augmented answer: validate,
// embed the question, rank the owner's chunks, assemble context, generate.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/grovekit/grove/internal/answer"
	"github.com/grovekit/grove/internal/embed"
	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/store"
)

var (
	// ErrOwnerRequired indicates a request without an owner id.
	ErrOwnerRequired = errors.New("owner id is required")

	// ErrEmptyQuery indicates a request without query text.
	ErrEmptyQuery = errors.New("query text is required")
)

// DefaultTopK is how many chunks ground an answer unless configured.
const DefaultTopK = 5

// Searcher is the retrieval surface the orchestrator needs.
type Searcher interface {
	SearchChunks(ctx context.Context, query []float32, ownerID string, limit int) ([]store.ScoredChunk, error)
}

// Embedder embeds a single query text, degrading instead of failing.
type Embedder interface {
	Embed(ctx context.Context, text string, attrs ...any) embed.Result
}

// Request is one question scoped to an owner's corpus.
type Request struct {
	OwnerID string `json:"-"`
	Query   string `json:"query"`
}

// Response is the answer plus its retrieval provenance. Degraded is set
// when the query embedding or the generation fell back; the response is
// still a success, just with a quality caveat.
type Response struct {
	Query         string   `json:"query"`
	Answer        string   `json:"answer"`
	CitedChunkIDs []string `json:"cited_chunk_ids"`
	ResultCount   int      `json:"result_count"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// Orchestrator runs the query pipeline.
type Orchestrator struct {
	embedder Embedder
	searcher Searcher
	answerer *answer.Answerer
	topK     int
	logger   log.Logger
}

// New creates a query orchestrator ranking topK chunks per question.
// topK 0 means DefaultTopK.
func New(embedder Embedder, searcher Searcher, answerer *answer.Answerer, topK int, logger log.Logger) (*Orchestrator, error) {
	if embedder == nil || searcher == nil || answerer == nil {
		return nil, fmt.Errorf("query: embedder, searcher and answerer are required")
	}
	if topK < 0 {
		return nil, fmt.Errorf("query: top k must not be negative, got %d", topK)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		embedder: embedder,
		searcher: searcher,
		answerer: answerer,
		topK:     topK,
		logger:   logger.With("component", "query"),
	}, nil
}

// Run answers one question against the owner's corpus. Validation errors
// are the only error returns besides retrieval failures: provider
// degradation (embedding or generation) produces a degraded success.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Response, error) {
	if req.OwnerID == "" {
		return Response{}, ErrOwnerRequired
	}
	if req.Query == "" {
		return Response{}, ErrEmptyQuery
	}

	embedded := o.embedder.Embed(ctx, req.Query, "owner_id", req.OwnerID)
	if embedded.Degraded {
		// A zero query vector scores 0 against everything, so ranking is
		// meaningless. Answer the honest way instead of pretending.
		o.logger.Warn("query embedding degraded, skipping retrieval",
			"owner_id", req.OwnerID, "reason", embedded.Reason)
		return Response{
			Query:         req.Query,
			Answer:        answer.NoContextAnswer,
			CitedChunkIDs: []string{},
			Degraded:      true,
		}, nil
	}

	chunks, err := o.searcher.SearchChunks(ctx, embedded.Vector, req.OwnerID, o.topK)
	if err != nil {
		return Response{}, fmt.Errorf("searching chunks: %w", err)
	}

	result := o.answerer.Answer(ctx, req.Query, chunks)

	o.logger.Info("query answered",
		"owner_id", req.OwnerID, "results", len(chunks), "degraded", result.Degraded)

	return Response{
		Query:         req.Query,
		Answer:        result.Text,
		CitedChunkIDs: result.CitedChunkIDs,
		ResultCount:   len(chunks),
		Degraded:      result.Degraded,
	}, nil
}
