// Package rank implements cosine-similarity ranking over embedding vectors.
//
// It is the reference semantics for retrieval ordering: the Postgres store
// pushes the same computation down to pgvector (`<=>` is cosine distance, so
// 1 - distance equals the score computed here), and both paths must order
// results identically given identical inputs — descending score, ties broken
// by id ascending so repeated queries over an unchanged corpus are stable.
package rank

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimensionMismatch indicates vectors of different lengths were
	// compared. Mixed dimensionality is a corpus corruption signal and must
	// fail fast, never silently truncate.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNegativeLimit indicates a negative result limit.
	ErrNegativeLimit = errors.New("limit must not be negative")
)

// CosineSimilarity returns dot(a,b)/(|a|*|b|) in [-1, 1].
// A zero-norm vector (the degraded-embedding fallback) scores 0 against
// everything rather than producing NaN, so degraded chunks sort last among
// real matches but remain retrievable.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d components", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp accumulated floating-point error at the boundaries.
	return math.Max(-1, math.Min(1, score)), nil
}

// Item is one candidate vector with its identifier.
type Item struct {
	ID     string
	Vector []float32
}

// Scored is an Item with its similarity score relative to one query vector.
type Scored struct {
	ID    string
	Score float64
}

// Top returns the top-limit items by cosine similarity to query, descending,
// ties broken by ID ascending. A limit of 0 returns an empty slice. Any
// candidate with a different dimensionality fails the whole call.
func Top(query []float32, items []Item, limit int) ([]Scored, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeLimit, limit)
	}
	if limit == 0 || len(items) == 0 {
		return []Scored{}, nil
	}

	scored := make([]Scored, 0, len(items))
	for _, item := range items {
		score, err := CosineSimilarity(query, item.Vector)
		if err != nil {
			return nil, fmt.Errorf("scoring item %q: %w", item.ID, err)
		}
		scored = append(scored, Scored{ID: item.ID, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
