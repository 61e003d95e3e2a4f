package search

import (
	"context"
	"math"
)

// Scorer is one search strategy. Search returns up to k chunk scores in
// [0,1] for a single query variant; no matches is an empty map, not an
// error.
type Scorer interface {
	Source() Source
	Search(ctx context.Context, variant string, k int) (ScoreMap, error)
}

// variantHits is one scorer's output for one variant.
type variantHits struct {
	variant string
	scores  ScoreMap
}

// merged is the per-source max across variants, with the variant that
// produced each kept score.
type merged struct {
	scores ScoreMap
	best   map[string]string
}

// mergeMax keeps, per chunk, the highest score across variants. Variants
// are visited in order so equal scores keep the earliest variant.
func mergeMax(hits []variantHits) merged {
	m := merged{scores: ScoreMap{}, best: map[string]string{}}
	for _, h := range hits {
		for id, s := range h.scores {
			s = clamp01(s)
			if prev, ok := m.scores[id]; ok && prev >= s {
				continue
			}
			m.scores[id] = s
			m.best[id] = h.variant
		}
	}
	return m
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
