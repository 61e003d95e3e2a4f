package search

// ConfidenceGate routes a fused list to GENERATE or FALLBACK.
type ConfidenceGate struct {
	threshold float64
}

// NewConfidenceGate creates a gate with the configured threshold.
func NewConfidenceGate(threshold float64) *ConfidenceGate {
	return &ConfidenceGate{threshold: threshold}
}

// Threshold returns the GENERATE cutoff.
func (g *ConfidenceGate) Threshold() float64 {
	return g.threshold
}

// Decide returns FALLBACK for an empty list, otherwise GENERATE iff the
// top combined score reaches the threshold. candidates must be sorted.
func (g *ConfidenceGate) Decide(candidates []*Candidate) (Route, float64) {
	if len(candidates) == 0 {
		return RouteFallback, 0
	}
	top := candidates[0].CombinedScore
	if top >= g.threshold {
		return RouteGenerate, top
	}
	return RouteFallback, top
}
