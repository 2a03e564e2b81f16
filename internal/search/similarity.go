package search

import "math"

// CosineSimilarity returns dot(a,b) / (|a|*|b|) in [-1, 1].
//
// A zero-magnitude vector or a dimensionality mismatch yields NaN; callers
// must treat NaN as the lowest possible rank, never a match. The acceptance
// rule in the scorer does exactly that, since every comparison against NaN
// is false.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
