// Package vector holds small numeric helpers for embedding vectors.
package vector

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("vectors must have the same length")
	ErrEmptyVector       = errors.New("vectors must not be empty")
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Vectors of different lengths are rejected. If either vector has zero magnitude
// the similarity is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
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

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, sim)), nil
}
