package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}

	score, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-4, 0.5, 9}

	ab, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := CosineSimilarity(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, score, 1e-9)
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 1}, []float32{-1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-9)
}

func TestCosineSimilarity_ZeroNormIsZeroNotNaN(t *testing.T) {
	zero := []float32{0, 0, 0}
	other := []float32{1, 2, 3}

	score, err := CosineSimilarity(zero, other)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsNaN(score))

	score, err = CosineSimilarity(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineSimilarity_BoundedDespiteRoundoff(t *testing.T) {
	// Near-parallel large vectors can accumulate error past 1.0 without the
	// clamp.
	a := make([]float32, 768)
	for i := range a {
		a[i] = 0.037
	}
	score, err := CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.LessOrEqual(t, score, 1.0)
}

func TestTop_OrdersDescending(t *testing.T) {
	query := []float32{1, 0}
	items := []Item{
		{ID: "far", Vector: []float32{0, 1}},
		{ID: "near", Vector: []float32{1, 0.01}},
		{ID: "mid", Vector: []float32{1, 1}},
	}

	got, err := Top(query, items, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "far", got[2].ID)
}

func TestTop_LimitTruncates(t *testing.T) {
	query := []float32{1, 0}
	items := []Item{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 1}},
		{ID: "c", Vector: []float32{0, 1}},
	}

	got, err := Top(query, items, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTop_ZeroLimitIsEmptyNotError(t *testing.T) {
	got, err := Top([]float32{1}, []Item{{ID: "a", Vector: []float32{1}}}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTop_NegativeLimit(t *testing.T) {
	_, err := Top([]float32{1}, nil, -1)
	assert.ErrorIs(t, err, ErrNegativeLimit)
}

func TestTop_TieBreakByIDAscending(t *testing.T) {
	query := []float32{1, 0}
	// Two identical vectors and two zero vectors: both pairs tie.
	items := []Item{
		{ID: "zz-zero", Vector: []float32{0, 0}},
		{ID: "bb", Vector: []float32{2, 0}},
		{ID: "aa", Vector: []float32{4, 0}},
		{ID: "aa-zero", Vector: []float32{0, 0}},
	}

	for range 5 {
		got, err := Top(query, items, 10)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "aa", got[0].ID)
		assert.Equal(t, "bb", got[1].ID)
		assert.Equal(t, "aa-zero", got[2].ID)
		assert.Equal(t, "zz-zero", got[3].ID)
	}
}

func TestTop_DimensionMismatchFailsWholeCall(t *testing.T) {
	_, err := Top([]float32{1, 2, 3}, []Item{
		{ID: "ok", Vector: []float32{1, 2, 3}},
		{ID: "bad", Vector: []float32{1, 2}},
	}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
