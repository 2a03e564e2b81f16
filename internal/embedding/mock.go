package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// Mock is a deterministic embedder for tests and offline development.
// Identical texts always produce identical vectors, and the vectors are
// unit-normalized so cosine similarities behave sensibly.
type Mock struct {
	dimension int
}

// Compile-time check that Mock implements Embedder.
var _ Embedder = (*Mock)(nil)

// NewMock returns a mock embedder. If dimension is 0, DefaultOllamaDimension
// is used.
func NewMock(dimension int) *Mock {
	if dimension == 0 {
		dimension = DefaultOllamaDimension
	}
	return &Mock{dimension: dimension}
}

func (m *Mock) Model() string {
	return "mock"
}

func (m *Mock) Dimension() int {
	return m.dimension
}

// Embed derives a pseudo-embedding from an FNV hash of the text driving a
// linear congruential generator.
func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, m.dimension)
	var norm float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// Map the top bits to [-1, 1).
		v := float64(int64(state>>11))/float64(1<<52) - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
