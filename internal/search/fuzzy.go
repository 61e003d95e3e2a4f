package search

import (
	"context"
	"sort"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// fuzzyCheckEvery is how many chunks are scanned between context checks.
const fuzzyCheckEvery = 64

type fuzzyDoc struct {
	id   string
	text []rune
}

// FuzzyScorer scores chunks by approximate substring similarity: the
// fewest edits that turn the variant into some substring of the chunk's
// leading window, as 1 - distance/len(variant).
type FuzzyScorer struct {
	docs     []fuzzyDoc
	minScore float64
}

// NewFuzzyScorer precomputes the folded leading window of every chunk.
func NewFuzzyScorer(corpus *store.Corpus, window int, minScore float64) *FuzzyScorer {
	chunks := corpus.Chunks()
	docs := make([]fuzzyDoc, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, fuzzyDoc{id: ch.ID, text: []rune(normalizeQuery(leadingRunes(ch.Text, window)))})
	}
	return &FuzzyScorer{docs: docs, minScore: minScore}
}

func (s *FuzzyScorer) Source() Source { return SourceFuzzy }

func (s *FuzzyScorer) Search(ctx context.Context, variant string, k int) (ScoreMap, error) {
	pattern := []rune(normalizeQuery(variant))
	if len(pattern) == 0 || k <= 0 {
		return ScoreMap{}, nil
	}

	var m *myersPattern
	if len(pattern) <= 64 {
		m = newMyersPattern(pattern)
	}

	type hit struct {
		id    string
		score float64
	}
	var hits []hit
	for i, doc := range s.docs {
		if i%fuzzyCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var d int
		if m != nil {
			d = m.distance(doc.text)
		} else {
			d = substringDistance(pattern, doc.text)
		}
		score := 1 - float64(d)/float64(len(pattern))
		if score >= s.minScore && score > 0 {
			hits = append(hits, hit{id: doc.id, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make(ScoreMap, len(hits))
	for _, h := range hits {
		out[h.id] = clamp01(h.score)
	}
	return out, nil
}

// myersPattern is Myers' bit-vector algorithm set up for approximate
// substring search of a pattern of at most 64 runes.
type myersPattern struct {
	m    int
	peq  map[rune]uint64
	high uint64
}

func newMyersPattern(pattern []rune) *myersPattern {
	p := &myersPattern{
		m:    len(pattern),
		peq:  make(map[rune]uint64, len(pattern)),
		high: 1 << (len(pattern) - 1),
	}
	for i, r := range pattern {
		p.peq[r] |= 1 << i
	}
	return p
}

// distance returns the minimum edit distance between the pattern and any
// substring of text.
func (p *myersPattern) distance(text []rune) int {
	var mask uint64 = ^uint64(0)
	if p.m < 64 {
		mask = (1 << p.m) - 1
	}
	pv := mask
	var mv uint64
	score := p.m
	best := score

	for _, r := range text {
		eq := p.peq[r]
		xv := eq | mv
		xh := (((eq & pv) + pv) ^ pv) | eq
		ph := mv | ^(xh | pv)
		mh := pv & xh
		if ph&p.high != 0 {
			score++
		} else if mh&p.high != 0 {
			score--
		}
		// Row zero is free in substring search, so no carry-in on shift.
		ph <<= 1
		mh <<= 1
		pv = (mh | ^(xv | ph)) & mask
		mv = ph & xv & mask
		if score < best {
			best = score
			if best == 0 {
				break
			}
		}
	}
	return best
}

// substringDistance is the dynamic-programming form of the same measure,
// used for patterns too long for one machine word.
func substringDistance(pattern, text []rune) int {
	m := len(pattern)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := range prev {
		prev[i] = i
	}
	best := m
	for _, tr := range text {
		cur[0] = 0
		for i := 1; i <= m; i++ {
			cost := 1
			if pattern[i-1] == tr {
				cost = 0
			}
			v := prev[i-1] + cost
			if del := prev[i] + 1; del < v {
				v = del
			}
			if ins := cur[i-1] + 1; ins < v {
				v = ins
			}
			cur[i] = v
		}
		if cur[m] < best {
			best = cur[m]
		}
		prev, cur = cur, prev
	}
	return best
}

func leadingRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

var _ Scorer = (*FuzzyScorer)(nil)
