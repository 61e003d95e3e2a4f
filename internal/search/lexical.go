package search

import (
	"context"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// LexicalScorer scores chunks by BM25 term relevance.
//
// Raw BM25 is unbounded, so each hit is divided by the variant's top hit
// and then scaled by the fraction of distinct query terms it matched. A
// lone hit that matches one of five query terms scores 0.2, not 1.
type LexicalScorer struct {
	index store.BM25Index
	stop  map[string]struct{}
}

// NewLexicalScorer wraps a BM25 index. stopWords must be the list the
// index was built with so coverage counts the same terms bleve searched.
func NewLexicalScorer(index store.BM25Index, stopWords []string) *LexicalScorer {
	if stopWords == nil {
		stopWords = store.DefaultStopWords
	}
	return &LexicalScorer{index: index, stop: store.BuildStopWordMap(stopWords)}
}

func (s *LexicalScorer) Source() Source { return SourceLexical }

func (s *LexicalScorer) Search(ctx context.Context, variant string, k int) (ScoreMap, error) {
	terms := s.queryTerms(variant)
	if len(terms) == 0 || k <= 0 {
		return ScoreMap{}, nil
	}

	hits, err := s.index.Search(ctx, variant, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return ScoreMap{}, nil
	}

	top := 0.0
	for _, h := range hits {
		if h.Score > top {
			top = h.Score
		}
	}
	if top <= 0 {
		return ScoreMap{}, nil
	}

	out := make(ScoreMap, len(hits))
	for _, h := range hits {
		matched := 0
		for _, t := range h.MatchedTerms {
			if _, ok := terms[t]; ok {
				matched++
			}
		}
		coverage := float64(matched) / float64(len(terms))
		if matched == 0 {
			// Locations can be missing for some query types; fall back to
			// the relative score alone.
			coverage = 1
		}
		out[h.DocID] = clamp01(h.Score / top * coverage)
	}
	return out, nil
}

// queryTerms returns the distinct non-stop terms bleve will search for.
func (s *LexicalScorer) queryTerms(variant string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, t := range store.Tokenize(variant) {
		if _, stop := s.stop[t]; stop {
			continue
		}
		terms[t] = struct{}{}
	}
	return terms
}

var _ Scorer = (*LexicalScorer)(nil)
