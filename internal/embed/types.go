// Package embed turns text into vectors for the vector scorer and for
// corpus import. Providers: a deterministic offline hash embedder and an
// Ollama HTTP client, optionally wrapped in an LRU cache.
package embed

import (
	"context"
	"math"
)

// StaticDimensions is the vector length of StaticEmbedder.
const StaticDimensions = 256

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
