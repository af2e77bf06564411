package store

import (
	"context"
	"strings"
	"time"

	"github.com/grovekit/grove/internal/log"
)

// RetryConfig bounds the backoff loop around store writes.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the standard bounds: a freshly provisioned
// backend may need a few seconds for DNS or connection acceptance, but a
// persistent outage must surface as an error, not an endless loop.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// transientPatterns groups error substrings by category, matched
// case-insensitively against err.Error().
//
// NOTE: string matching is a documented exception to the rule against
// inspecting err.Error(): pgx wraps net errors several layers deep and
// there is no typed error covering DNS-not-yet-resolvable on a new backend.
var transientPatterns = [][]string{
	{"connection refused", "connection reset", "broken pipe"},
	{"no such host", "i/o timeout", "network is unreachable"},
	{"the database system is starting up", "too many clients"},
}

// transientError reports whether err is worth retrying.
func transientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range transientPatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// withRetry runs fn with bounded exponential backoff on transient errors.
// Non-transient errors and context cancellation return immediately; when
// attempts exhaust, the last error is returned for the caller to surface
// as a persistence failure.
func withRetry(ctx context.Context, logger log.Logger, op string, cfg RetryConfig, fn func(context.Context) error) error {
	var lastErr error
	delay := cfg.InitialInterval

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !transientError(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		logger.Warn("store operation failed, retrying",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxInterval {
			delay = cfg.MaxInterval
		}
	}
	return lastErr
}
