// Package embed turns text into fixed-length vectors via an external
// provider, with a degrade-not-abort failure policy.
//
// A provider failure (network, quota, malformed response) does not abort the
// batch: the affected text gets an all-zero vector of the configured
// dimension and the outcome is tagged Degraded so callers can distinguish
// "embedded" from "embedded with degraded quality" without relying on log
// side channels. A zero vector has cosine similarity 0 against everything,
// so a degraded chunk stays retrievable but is never preferred.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/grovekit/grove/internal/log"
)

// Embedder is the provider collaborator. Implementations live in
// internal/provider; tests use deterministic fakes.
type Embedder interface {
	// Embed returns a vector for text. The vector length is the provider's
	// configured output dimensionality.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is the tagged outcome of one embedding operation.
// Degraded results carry the zero vector and the reason for remediation.
type Result struct {
	Vector   []float32
	Degraded bool
	Reason   string
}

// Config controls the client's resilience envelope.
type Config struct {
	// Dimension is the required vector length D. Every result, including
	// the degraded fallback, has exactly this many components.
	Dimension int

	// Timeout bounds each provider call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Concurrency bounds in-flight provider calls in EmbedMany.
	// Zero means DefaultConcurrency.
	Concurrency int

	// RatePerSecond throttles provider calls. Zero disables throttling.
	RatePerSecond int
}

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// DefaultConcurrency is the EmbedMany fan-out width.
const DefaultConcurrency = 4

// Client wraps a provider Embedder with timeout, rate limiting, dimension
// enforcement and the zero-vector fallback. Safe for concurrent use.
type Client struct {
	provider    Embedder
	dim         int
	timeout     time.Duration
	concurrency int
	limiter     *rate.Limiter
	logger      log.Logger
}

// New creates a Client. cfg.Dimension must be positive.
func New(provider Embedder, cfg Config, logger log.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond)
	}

	return &Client{
		provider:    provider,
		dim:         cfg.Dimension,
		timeout:     timeout,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Dimension returns the configured vector length D.
func (c *Client) Dimension() int {
	return c.dim
}

// ZeroVector returns the all-zero fallback vector of length dim.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// Embed embeds a single text. It never returns an error: provider failures
// and malformed responses degrade to the zero vector. The attrs (chunk id,
// document id) are logged with the failure for after-the-fact remediation.
func (c *Client) Embed(ctx context.Context, text string, attrs ...any) Result {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.degrade(fmt.Sprintf("rate limiter: %v", err), attrs)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vector, err := c.provider.Embed(callCtx, text)
	if err != nil {
		return c.degrade(fmt.Sprintf("provider call failed: %v", err), attrs)
	}
	if len(vector) != c.dim {
		return c.degrade(fmt.Sprintf("provider returned %d components, want %d", len(vector), c.dim), attrs)
	}

	return Result{Vector: vector}
}

// EmbedMany embeds texts with bounded concurrency, one logical provider
// call per text, and returns results in input order. A degraded element
// never disturbs its neighbors and never reorders the batch.
func (c *Client) EmbedMany(ctx context.Context, texts []string, attrs ...any) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	// The caller's slice may have spare capacity; the workers below each
	// append to it, so give them a full-capacity copy they cannot share.
	attrs = slices.Clip(slices.Clone(attrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			// Index i pins the result slot, so concurrent completion order
			// cannot cross-assign a vector to another text.
			results[i] = c.Embed(gctx, text, append(attrs, "batch_index", i)...)
			return nil
		})
	}

	// Workers only record degradations, they never return errors.
	_ = g.Wait()
	return results
}

func (c *Client) degrade(reason string, attrs []any) Result {
	c.logger.Warn("embedding degraded to zero vector",
		append([]any{"reason", reason, "dimension", c.dim}, attrs...)...)
	return Result{
		Vector:   ZeroVector(c.dim),
		Degraded: true,
		Reason:   reason,
	}
}
