package search

import (
	"fmt"
	"math"
)

// weightTolerance absorbs float rounding in weight sums.
const weightTolerance = 1e-6

// ScoringWeights are the fusion weights. Per-source weights are each >= 0
// and sum to at most 1; the two fusion weights are each >= 0 and sum to 1.
type ScoringWeights struct {
	Lexical float64 `yaml:"lexical" json:"lexical"`
	Vector  float64 `yaml:"vector" json:"vector"`
	Fuzzy   float64 `yaml:"fuzzy" json:"fuzzy"`

	// FusionHybrid scales the weighted per-source score.
	FusionHybrid float64 `yaml:"fusion_hybrid" json:"fusion_hybrid"`
	// FusionRelevance scales the category relevance adjustment.
	FusionRelevance float64 `yaml:"fusion_relevance" json:"fusion_relevance"`
}

// DefaultWeights favours semantic similarity, keeps lexical matching
// strong, and gives fuzzy matching a typo-tolerance share.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Lexical:         0.3,
		Vector:          0.5,
		Fuzzy:           0.2,
		FusionHybrid:    0.7,
		FusionRelevance: 0.3,
	}
}

// Validate enforces the weight invariants.
func (w ScoringWeights) Validate() error {
	named := []struct {
		name string
		v    float64
	}{
		{"lexical_weight", w.Lexical},
		{"vector_weight", w.Vector},
		{"fuzzy_weight", w.Fuzzy},
		{"fusion_weight_hybrid", w.FusionHybrid},
		{"fusion_weight_relevance", w.FusionRelevance},
	}
	for _, n := range named {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			return fmt.Errorf("%s must be a finite number", n.name)
		}
		if n.v < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", n.name, n.v)
		}
	}
	if sum := w.SourceSum(); sum > 1+weightTolerance {
		return fmt.Errorf("lexical+vector+fuzzy weights must sum to <= 1, got %g", sum)
	}
	if sum := w.FusionHybrid + w.FusionRelevance; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("fusion weights must sum to 1, got %g", sum)
	}
	return nil
}

// SourceSum returns lexical+vector+fuzzy.
func (w ScoringWeights) SourceSum() float64 {
	return w.Lexical + w.Vector + w.Fuzzy
}

// Of returns the weight of source s.
func (w ScoringWeights) Of(s Source) float64 {
	switch s {
	case SourceLexical:
		return w.Lexical
	case SourceVector:
		return w.Vector
	case SourceFuzzy:
		return w.Fuzzy
	default:
		return 0
	}
}

func (w *ScoringWeights) set(s Source, v float64) {
	switch s {
	case SourceLexical:
		w.Lexical = v
	case SourceVector:
		w.Vector = v
	case SourceFuzzy:
		w.Fuzzy = v
	}
}

// RedistributionMode decides what happens to a failed source's weight.
type RedistributionMode string

const (
	// RedistributeProportional hands failed weight to active sources in
	// proportion to their own weight, preserving the configured total.
	RedistributeProportional RedistributionMode = "redistribute"
	// RedistributeDrop zeroes failed weight; the total shrinks.
	RedistributeDrop RedistributionMode = "drop"
)

// Valid reports whether m is a known mode.
func (m RedistributionMode) Valid() bool {
	return m == RedistributeProportional || m == RedistributeDrop
}

// Effective returns the weights to fuse with when only the active sources
// produced results. Fusion weights are unchanged.
func (w ScoringWeights) Effective(active map[Source]bool, mode RedistributionMode) ScoringWeights {
	out := w
	var activeSum float64
	nActive := 0
	for _, s := range AllSources {
		if active[s] {
			activeSum += w.Of(s)
			nActive++
		} else {
			out.set(s, 0)
		}
	}
	if mode != RedistributeProportional || nActive == 0 || nActive == len(AllSources) {
		return out
	}

	total := w.SourceSum()
	for _, s := range AllSources {
		if !active[s] {
			continue
		}
		if activeSum > 0 {
			out.set(s, w.Of(s)*total/activeSum)
		} else {
			out.set(s, total/float64(nActive))
		}
	}
	return out
}
