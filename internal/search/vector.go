package search

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// VectorScorer embeds the variant and scores its nearest neighbours by
// cosine similarity.
type VectorScorer struct {
	embedder embed.Embedder
	vectors  store.VectorStore
}

// NewVectorScorer pairs the query embedder with the corpus vector index.
func NewVectorScorer(embedder embed.Embedder, vectors store.VectorStore) *VectorScorer {
	return &VectorScorer{embedder: embedder, vectors: vectors}
}

func (s *VectorScorer) Source() Source { return SourceVector }

func (s *VectorScorer) Search(ctx context.Context, variant string, k int) (ScoreMap, error) {
	if s.vectors.Count() == 0 || k <= 0 {
		return ScoreMap{}, nil
	}

	vec, err := s.embedder.Embed(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make(ScoreMap, len(hits))
	for _, h := range hits {
		out[h.ID] = clamp01(float64(h.Score))
	}
	return out, nil
}

var _ Scorer = (*VectorScorer)(nil)
