package search

import (
	"math"
	"sort"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// scoreGrid is the resolution combined scores are rounded to, so that
// float noise between equal sums compares as an exact tie.
const scoreGrid = 1e9

// ChunkLookup resolves chunk ids to chunks. *store.Corpus implements it.
type ChunkLookup interface {
	Get(id string) *store.Chunk
}

// FusionPolicy holds the relevance-adjustment amounts.
type FusionPolicy struct {
	BoostAmount      float64
	AvoidAmount      float64
	ContentTypeBonus float64
}

// ScoreFusion merges per-source scores into one ranked candidate list.
//
// Per chunk:
//
//	base       = wL*lexical + wV*vector + wF*fuzzy
//	adjustment = +boost | -avoid, +content type bonus
//	combined   = clamp01(fH*base + fR*adjustment)
//
// Ties on combined score go to the better lexical rank, then chunk id.
type ScoreFusion struct {
	policy FusionPolicy
	chunks ChunkLookup
}

// NewScoreFusion creates a fusion stage over the given corpus.
func NewScoreFusion(policy FusionPolicy, chunks ChunkLookup) *ScoreFusion {
	return &ScoreFusion{policy: policy, chunks: chunks}
}

// Fuse ranks the union of chunks scored by any source and truncates to k
// (k <= 0 keeps everything). Ids missing from the corpus are ignored.
func (f *ScoreFusion) Fuse(scores map[Source]ScoreMap, weights ScoringWeights, profile *QueryProfile, k int) []*Candidate {
	in := make(map[Source]merged, len(scores))
	for s, m := range scores {
		in[s] = merged{scores: m}
	}
	return f.fuse(in, weights, profile, k)
}

func (f *ScoreFusion) fuse(in map[Source]merged, weights ScoringWeights, profile *QueryProfile, k int) []*Candidate {
	lexRank := lexicalRanks(in[SourceLexical].scores)

	byID := make(map[string]*Candidate)
	for _, src := range AllSources {
		m, ok := in[src]
		if !ok {
			continue
		}
		for id, score := range m.scores {
			c, ok := byID[id]
			if !ok {
				ch := f.chunks.Get(id)
				if ch == nil {
					continue
				}
				c = &Candidate{Chunk: ch, ChunkID: id}
				byID[id] = c
			}
			score = clamp01(score)
			switch src {
			case SourceLexical:
				c.LexicalScore = score
			case SourceVector:
				c.VectorScore = score
			case SourceFuzzy:
				c.FuzzyScore = score
			}
			if v, ok := m.best[id]; ok {
				if c.Explanation.BestVariant == nil {
					c.Explanation.BestVariant = make(map[Source]string, len(AllSources))
				}
				c.Explanation.BestVariant[src] = v
			}
		}
	}

	out := make([]*Candidate, 0, len(byID))
	for _, c := range byID {
		f.score(c, weights, profile)
		c.Explanation.LexicalRank = lexRank[c.ChunkID]
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return candidateLess(out[i], out[j]) })

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func (f *ScoreFusion) score(c *Candidate, w ScoringWeights, profile *QueryProfile) {
	base := w.Lexical*c.LexicalScore + w.Vector*c.VectorScore + w.Fuzzy*c.FuzzyScore

	var adj float64
	if profile != nil {
		switch {
		case profile.isBoosted(c.Chunk.Source):
			adj += f.policy.BoostAmount
			c.Explanation.Boosted = true
		case profile.isAvoided(c.Chunk.Source):
			adj -= f.policy.AvoidAmount
			c.Explanation.Avoided = true
		}
		if profile.ContentType != "" && c.Chunk.ContentType == profile.ContentType {
			adj += f.policy.ContentTypeBonus
			c.Explanation.ContentTypeMatch = true
		}
	}

	c.Explanation.Base = base
	c.Explanation.Adjustment = adj
	c.CombinedScore = roundScore(clamp01(w.FusionHybrid*base + w.FusionRelevance*adj))
}

// candidateLess orders by combined score desc, then lexical rank (chunks
// without a lexical hit last), then chunk id.
func candidateLess(a, b *Candidate) bool {
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore > b.CombinedScore
	}
	ra, rb := a.Explanation.LexicalRank, b.Explanation.LexicalRank
	if ra != rb {
		switch {
		case ra == 0:
			return false
		case rb == 0:
			return true
		default:
			return ra < rb
		}
	}
	return a.ChunkID < b.ChunkID
}

func roundScore(x float64) float64 {
	return math.Round(x*scoreGrid) / scoreGrid
}

// lexicalRanks assigns 1-based ranks by lexical score desc, then id.
func lexicalRanks(scores ScoreMap) map[string]int {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}
