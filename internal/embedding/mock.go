package embedding

import (
	"context"
	"hash/fnv"
)

// MockEmbedder is a deterministic embedder for tests. The same text always
// gets the same vector, and different texts get (almost always) different
// vectors, so round-trip retrieval tests can rely on exact distances.
type MockEmbedder struct {
	dimensions int
	// FailFor makes Embed return an error for these exact texts, to exercise
	// per-item failure handling.
	FailFor map[string]error
}

// NewMockEmbedder returns a mock embedder with the given dimension.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic vector derived from the text hash. The task
// type does not change the vector, so a query identical to a document text
// lands at distance zero.
func (e *MockEmbedder) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	if err, ok := e.FailFor[text]; ok {
		return nil, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()
	vec := make([]float32, e.dimensions)
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state>>33)%1000) / 1000
	}
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
