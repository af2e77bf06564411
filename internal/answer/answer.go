// Package answer assembles a bounded context from ranked chunks and asks
// the generative provider for a grounded answer.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/store"
)

// Fallback is returned verbatim when the generative provider fails. The
// request still succeeds: retrieval context was computed, only the final
// generation degraded.
const Fallback = "Sorry, I couldn't generate a response. Please try again later."

// NoContextAnswer is returned without a provider call when retrieval found
// nothing to ground an answer on.
const NoContextAnswer = "I don't have enough information."

// promptTemplate is the grounding contract: the model must refuse rather
// than invent when the context does not contain the answer.
const promptTemplate = `Answer the following question based on the provided context.
If the answer is not in the context, say "I don't have enough information."

Context:
%s

Question: %s

Answer:`

// DefaultMaxContextBytes bounds the assembled context block.
const DefaultMaxContextBytes = 16384

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// Generator produces text for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one answer call. Degraded marks a provider
// failure that was absorbed by the fallback; the caller reports it as a
// quality caveat, never as a request failure.
type Result struct {
	Text          string
	CitedChunkIDs []string
	Degraded      bool
	Reason        string
}

// Answerer builds prompts from ranked chunks and invokes a Generator.
type Answerer struct {
	gen             Generator
	maxContextBytes int
	timeout         time.Duration
	logger          log.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithMaxContextBytes overrides the context size budget.
func WithMaxContextBytes(n int) Option {
	return func(a *Answerer) { a.maxContextBytes = n }
}

// WithTimeout overrides the per-call generation timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Answerer) { a.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(a *Answerer) { a.logger = logger }
}

// New creates an Answerer around gen.
func New(gen Generator, opts ...Option) (*Answerer, error) {
	if gen == nil {
		return nil, fmt.Errorf("answer: generator is required")
	}
	a := &Answerer{
		gen:             gen,
		maxContextBytes: DefaultMaxContextBytes,
		timeout:         DefaultTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxContextBytes < 1 {
		return nil, fmt.Errorf("answer: max context bytes must be positive, got %d", a.maxContextBytes)
	}
	return a, nil
}

// Answer generates a grounded answer for query from chunks, which must
// already be in ranked order. Every ranked chunk id is cited, including
// chunks dropped from the context block by the size budget: dropping is a
// context-assembly decision, not a retrieval decision.
func (a *Answerer) Answer(ctx context.Context, query string, chunks []store.ScoredChunk) Result {
	cited := make([]string, 0, len(chunks))
	for _, c := range chunks {
		cited = append(cited, c.ID)
	}

	if len(chunks) == 0 {
		return Result{Text: NoContextAnswer, CitedChunkIDs: cited}
	}

	contextBlock, included := a.assembleContext(chunks)
	if included == 0 {
		// Even the top chunk alone exceeds the budget. A context-free prompt
		// would invite an ungrounded answer, so refuse instead of generating.
		a.logger.Warn("context budget admits no chunks, skipping generation",
			"ranked", len(chunks), "budget_bytes", a.maxContextBytes)
		return Result{Text: NoContextAnswer, CitedChunkIDs: cited}
	}
	if included < len(chunks) {
		a.logger.Debug("context budget dropped chunks",
			"included", included, "ranked", len(chunks), "budget_bytes", a.maxContextBytes)
	}

	prompt := fmt.Sprintf(promptTemplate, contextBlock, query)

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.gen.Generate(genCtx, prompt)
	if err != nil {
		a.logger.Warn("generation failed, returning fallback", "error", err)
		return Result{
			Text:          Fallback,
			CitedChunkIDs: cited,
			Degraded:      true,
			Reason:        err.Error(),
		}
	}
	return Result{Text: text, CitedChunkIDs: cited}
}

// assembleContext joins ranked chunks into one block, each prefixed with
// its document's display name, keeping whole chunks until the byte budget
// is exhausted. Returns the block and how many chunks made it in.
func (a *Answerer) assembleContext(chunks []store.ScoredChunk) (string, int) {
	var b strings.Builder
	included := 0
	for _, c := range chunks {
		block := fmt.Sprintf("Document: %s\nContent: %s", c.DocumentName, c.Content)
		need := len(block)
		if included > 0 {
			need += len("\n\n")
		}
		if b.Len()+need > a.maxContextBytes {
			break
		}
		if included > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		included++
	}
	return b.String(), included
}
