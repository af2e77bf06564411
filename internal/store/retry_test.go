package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/log"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
	}
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), log.NewNop(), "upsert", fastRetry(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), log.NewNop(), "upsert", fastRetry(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_NonTransientReturnsImmediately(t *testing.T) {
	permanent := errors.New("syntax error at or near SELECT")
	calls := 0
	err := withRetry(context.Background(), log.NewNop(), "search", fastRetry(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("lookup db.internal: no such host")
	calls := 0
	err := withRetry(context.Background(), log.NewNop(), "upsert", fastRetry(), func(context.Context) error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialInterval: time.Minute, MaxInterval: time.Minute}

	calls := 0
	err := withRetry(ctx, log.NewNop(), "upsert", cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection reset by peer")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"), true},
		{"dns", errors.New("lookup db.example.internal: no such host"), true},
		{"starting up", errors.New("FATAL: the database system is starting up"), true},
		{"case insensitive", errors.New("I/O TIMEOUT"), true},
		{"constraint", errors.New("duplicate key value violates unique constraint"), false},
		{"syntax", errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transientError(tt.err))
		})
	}
}
