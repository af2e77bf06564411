package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic stand-in for a real embedding provider.
// The same text always produces the same unit-length vector, distinct texts
// almost always differ, and no network is involved.
//
// Texts starting with "fail:" return an error, so callers can exercise
// degraded paths without a flaky provider.
type HashEmbedder struct {
	Dim int
}

// Embed derives a unit vector from an FNV hash of the text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.HasPrefix(text, "fail:") {
		return nil, errors.New("provider unavailable")
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, e.Dim)
	var norm float64
	for i := range v {
		// xorshift keeps the components dependent on both seed and index.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		c := float64(int64(seed%2001)-1000) / 1000
		v[i] = float32(c)
		norm += c * c
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v, nil
}
