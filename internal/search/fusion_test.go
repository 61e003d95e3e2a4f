package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/store"
)

func fusionCorpus(t *testing.T) *store.Corpus {
	t.Helper()
	return newTestCorpus(t,
		&store.Chunk{ID: "A", Source: "user-guide", ContentType: store.ContentGeneral},
		&store.Chunk{ID: "B", Source: "user-guide", ContentType: store.ContentGeneral},
		&store.Chunk{ID: "C", Source: "developer-guide", ContentType: store.ContentTutorial},
		&store.Chunk{ID: "D", Source: "api-documentation", ContentType: store.ContentAPI},
	)
}

func baseOnlyWeights(lexical, vector, fuzzy float64) ScoringWeights {
	return ScoringWeights{Lexical: lexical, Vector: vector, Fuzzy: fuzzy, FusionHybrid: 1}
}

func ids(cands []*Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ChunkID
	}
	return out
}

func TestFuse_TieBrokenByLexicalRank(t *testing.T) {
	// Given: A is lexical-heavy, B is vector-heavy, equal weights
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{
		SourceLexical: {"A": 0.9, "B": 0.1},
		SourceVector:  {"A": 0.1, "B": 0.9},
	}

	// When: fusing
	got := f.Fuse(scores, baseOnlyWeights(0.5, 0.5, 0), &QueryProfile{Category: CategoryGeneral}, 10)

	// Then: both combine to 0.5 and A wins on lexical rank
	require.Len(t, got, 2)
	assert.InDelta(t, 0.5, got[0].CombinedScore, 1e-9)
	assert.InDelta(t, 0.5, got[1].CombinedScore, 1e-9)
	assert.Equal(t, []string{"A", "B"}, ids(got))
	assert.Equal(t, 1, got[0].Explanation.LexicalRank)
	assert.Equal(t, 2, got[1].Explanation.LexicalRank)
}

func TestFuse_NoLexicalHitRanksLast(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{
		SourceLexical: {"B": 0.4},
		SourceVector:  {"A": 0.4, "B": 0},
	}

	got := f.Fuse(scores, baseOnlyWeights(0.5, 0.5, 0), nil, 10)

	assert.Equal(t, []string{"B", "A"}, ids(got))
	assert.Zero(t, got[1].Explanation.LexicalRank)
}

func TestFuse_IDBreaksRemainingTies(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{SourceVector: {"B": 0.3, "A": 0.3}}

	got := f.Fuse(scores, baseOnlyWeights(0, 1, 0), nil, 10)

	assert.Equal(t, []string{"A", "B"}, ids(got))
}

func TestFuse_NearTiesOrderIsStable(t *testing.T) {
	// Given: combined scores that differ only by float noise
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{
		SourceLexical: {"A": 0.9, "B": 0.8, "C": 0.7},
		SourceVector:  {"A": 0.1, "B": 0.2 + 1.4e-9, "C": 0.3 + 2.8e-9},
	}

	// When: fusing the same input repeatedly
	orders := make(map[string]int)
	for i := 0; i < 500; i++ {
		got := f.Fuse(scores, baseOnlyWeights(0.5, 0.5, 0), nil, 10)
		orders[strings.Join(ids(got), ",")]++
	}

	// Then: one order; B and C round to the same score and tie on lexical rank
	require.Len(t, orders, 1, "orders: %v", orders)
	assert.Contains(t, orders, "B,C,A")
}

func TestFuse_RelevanceAdjustment(t *testing.T) {
	// Given: an integration profile boosting developer-guide, avoiding
	// api-documentation and pairing with tutorial content
	policy := FusionPolicy{BoostAmount: 0.3, AvoidAmount: 0.4, ContentTypeBonus: 0.3}
	f := NewScoreFusion(policy, fusionCorpus(t))
	profile := &QueryProfile{
		Category:    "integration",
		Boosted:     []string{"Developer-Guide"},
		Avoided:     []string{"api-documentation"},
		ContentType: store.ContentTutorial,
	}
	w := DefaultWeights()
	scores := map[Source]ScoreMap{
		SourceLexical: {"A": 0.5, "C": 0.5, "D": 0.5},
	}

	// When: fusing
	got := f.Fuse(scores, w, profile, 10)

	// Then: C gets boost + content bonus, D is pushed down, A is neutral
	require.Equal(t, []string{"C", "A", "D"}, ids(got))
	base := 0.3 * 0.5

	assert.InDelta(t, 0.7*base+0.3*0.6, got[0].CombinedScore, 1e-9)
	assert.True(t, got[0].Explanation.Boosted)
	assert.True(t, got[0].Explanation.ContentTypeMatch)
	assert.InDelta(t, 0.6, got[0].Explanation.Adjustment, 1e-9)

	assert.InDelta(t, 0.7*base, got[1].CombinedScore, 1e-9)

	assert.InDelta(t, 0.0, got[2].CombinedScore, 1e-9, "clamped at zero")
	assert.True(t, got[2].Explanation.Avoided)
	assert.InDelta(t, base, got[2].Explanation.Base, 1e-9)
}

func TestFuse_ClampsAtOne(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{BoostAmount: 1, ContentTypeBonus: 1}, fusionCorpus(t))
	profile := &QueryProfile{Boosted: []string{"developer-guide"}, ContentType: store.ContentTutorial}
	w := ScoringWeights{Lexical: 1, FusionHybrid: 0.5, FusionRelevance: 0.5}

	got := f.Fuse(map[Source]ScoreMap{SourceLexical: {"C": 1.5}}, w, profile, 10)

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].CombinedScore)
	assert.Equal(t, 1.0, got[0].LexicalScore)
}

func TestFuse_TruncatesToK(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{SourceVector: {"A": 0.9, "B": 0.8, "C": 0.7, "D": 0.6}}

	got := f.Fuse(scores, baseOnlyWeights(0, 1, 0), nil, 2)

	assert.Equal(t, []string{"A", "B"}, ids(got))
}

func TestFuse_IgnoresUnknownChunks(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	scores := map[Source]ScoreMap{SourceVector: {"A": 0.9, "ghost": 1}}

	got := f.Fuse(scores, baseOnlyWeights(0, 1, 0), nil, 10)

	assert.Equal(t, []string{"A"}, ids(got))
}

func TestFuse_Empty(t *testing.T) {
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	got := f.Fuse(nil, DefaultWeights(), nil, 3)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFuse_DedupKeepsMaxAcrossVariants(t *testing.T) {
	// Given: chunk A found by two variants with different scores per source
	f := NewScoreFusion(FusionPolicy{}, fusionCorpus(t))
	in := map[Source]merged{
		SourceLexical: mergeMax([]variantHits{
			{variant: "sdk", scores: ScoreMap{"A": 0.4}},
			{variant: "sdk setup", scores: ScoreMap{"A": 0.8, "B": 0.2}},
		}),
		SourceVector: mergeMax([]variantHits{
			{variant: "sdk", scores: ScoreMap{"A": 0.7}},
			{variant: "sdk setup", scores: ScoreMap{"A": 0.7}},
		}),
	}

	// When: fusing
	got := f.fuse(in, baseOnlyWeights(0.5, 0.5, 0), nil, 10)

	// Then: A appears once with the per-source maxima
	require.Equal(t, []string{"A", "B"}, ids(got))
	assert.Equal(t, 0.8, got[0].LexicalScore)
	assert.Equal(t, 0.7, got[0].VectorScore)
	assert.Equal(t, "sdk setup", got[0].Explanation.BestVariant[SourceLexical])
	assert.Equal(t, "sdk", got[0].Explanation.BestVariant[SourceVector], "earliest variant wins ties")
}
