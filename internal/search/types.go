package search

import (
	"time"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// Source identifies one of the three scoring strategies.
type Source string

const (
	SourceLexical Source = "lexical"
	SourceVector  Source = "vector"
	SourceFuzzy   Source = "fuzzy"
)

// AllSources lists the strategies in their fixed reporting order.
var AllSources = []Source{SourceLexical, SourceVector, SourceFuzzy}

// Route is the gate's routing decision.
type Route string

const (
	// RouteGenerate means the top candidate is strong enough to answer from.
	RouteGenerate Route = "GENERATE"
	// RouteFallback means evidence is insufficient; ask a clarifying question.
	RouteFallback Route = "FALLBACK"
)

// FailureReason explains a FALLBACK that was not caused by low scores.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonEmptyQuery       FailureReason = "EmptyQuery"
	ReasonEmptyCorpus      FailureReason = "EmptyCorpus"
	ReasonAllSourcesFailed FailureReason = "AllSourcesFailed"
	ReasonCanceled         FailureReason = "Canceled"
)

// Stage is a step of the per-request pipeline.
type Stage string

const (
	StageAnalyzing Stage = "ANALYZING"
	StageSearching Stage = "SEARCHING"
	StageFusing    Stage = "FUSING"
	StageGating    Stage = "GATING"
	StageDone      Stage = "DONE"
)

// CategoryGeneral is the fallback category when no trigger matches.
const CategoryGeneral = "general"

// ScoreMap maps chunk id to a normalized score in [0,1].
type ScoreMap map[string]float64

// QueryProfile is the analyzer's read-only view of one query.
type QueryProfile struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	// Expansions are appended to the query to form extra search variants.
	Expansions []string `json:"expansions"`
	TargetK    int      `json:"target_k"`
	Boosted    []string `json:"boosted_sources,omitempty"`
	Avoided    []string `json:"avoided_sources,omitempty"`
	// ContentType is the category's canonical content type, if any.
	ContentType store.ContentType `json:"content_type,omitempty"`
	// Language is "tr" or "en".
	Language string `json:"language"`
}

// Variants returns the query followed by one "query expansion" string per
// expansion term. A blank query has no variants.
func (p *QueryProfile) Variants() []string {
	if p.Query == "" {
		return nil
	}
	out := make([]string, 0, 1+len(p.Expansions))
	out = append(out, p.Query)
	for _, e := range p.Expansions {
		out = append(out, p.Query+" "+e)
	}
	return out
}

func (p *QueryProfile) isBoosted(source string) bool {
	return containsFold(p.Boosted, source)
}

func (p *QueryProfile) isAvoided(source string) bool {
	return containsFold(p.Avoided, source)
}

// Explanation records how a candidate's score was formed. It never feeds
// back into the score.
type Explanation struct {
	Base             float64 `json:"base"`
	Adjustment       float64 `json:"adjustment"`
	Boosted          bool    `json:"boosted,omitempty"`
	Avoided          bool    `json:"avoided,omitempty"`
	ContentTypeMatch bool    `json:"content_type_match,omitempty"`
	// LexicalRank is the 1-based rank by lexical score; 0 means no lexical hit.
	LexicalRank int `json:"lexical_rank,omitempty"`
	// BestVariant holds, per source, the variant that produced the kept score.
	BestVariant map[Source]string `json:"best_variant,omitempty"`
}

// Candidate is a fused, ranked chunk.
type Candidate struct {
	Chunk         *store.Chunk `json:"-"`
	ChunkID       string       `json:"chunk_id"`
	LexicalScore  float64      `json:"lexical_score"`
	VectorScore   float64      `json:"vector_score"`
	FuzzyScore    float64      `json:"fuzzy_score"`
	CombinedScore float64      `json:"combined_score"`
	Explanation   Explanation  `json:"explanation"`
}

// SourceState is the per-request outcome of one source.
type SourceState string

const (
	SourceOK          SourceState = "ok"
	SourceFailed      SourceState = "failed"
	SourceTimedOut    SourceState = "timeout"
	SourceCircuitOpen SourceState = "circuit_open"
	SourceSkipped     SourceState = "skipped"
)

// SourceReport describes what one source contributed to a request.
type SourceReport struct {
	Source  Source        `json:"source"`
	State   SourceState   `json:"state"`
	Hits    int           `json:"hits"`
	Weight  float64       `json:"weight"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// RetrievalResult is the terminal value of one request. It is built once
// and not modified after Retrieve returns.
type RetrievalResult struct {
	RequestID     string         `json:"request_id"`
	Query         string         `json:"query"`
	Profile       *QueryProfile  `json:"profile"`
	Candidates    []*Candidate   `json:"candidates"`
	TopConfidence float64        `json:"top_confidence"`
	Route         Route          `json:"route"`
	Reason        FailureReason  `json:"reason,omitempty"`
	Sources       []SourceReport `json:"sources"`
	Stages        []Stage        `json:"stages"`
	Duration      time.Duration  `json:"duration_ns"`
}

// Source returns the report for s, if s was part of the request.
func (r *RetrievalResult) Source(s Source) (SourceReport, bool) {
	for _, rep := range r.Sources {
		if rep.Source == s {
			return rep, true
		}
	}
	return SourceReport{}, false
}
