package search

import (
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// NewScorers builds the three scorers over a loaded index. The vector
// scorer is omitted when embedder is nil, leaving that source skipped.
func NewScorers(cfg Config, idx *store.Index, embedder embed.Embedder, stopWords []string) []Scorer {
	scorers := []Scorer{
		NewLexicalScorer(idx.BM25, stopWords),
		NewFuzzyScorer(idx.Corpus, cfg.FuzzyWindow, cfg.FuzzyMinScore),
	}
	if embedder != nil {
		scorers = append(scorers, NewVectorScorer(embedder, idx.Vectors))
	}
	return scorers
}

// NewFromIndex wires an orchestrator over a loaded index.
func NewFromIndex(cfg Config, idx *store.Index, embedder embed.Embedder, stopWords []string, opts ...Option) (*Orchestrator, error) {
	return NewOrchestrator(cfg, idx.Corpus, NewScorers(cfg, idx, embedder, stopWords), opts...)
}
