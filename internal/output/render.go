package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

const snippetRunes = 160

// Retrieval prints a human-readable search result. With explain set it
// adds per-source scores, the score breakdown and source reports.
func (w *Writer) Retrieval(res *search.RetrievalResult, explain bool) {
	h := search.NewHandoff(res)

	header := fmt.Sprintf("%s  %s", res.Route, w.render(w.styles.Dim, res.RequestID))
	if res.Profile != nil {
		header = fmt.Sprintf("%s  category=%s k=%d lang=%s  %s",
			res.Route, res.Profile.Category, res.Profile.TargetK, res.Profile.Language,
			w.render(w.styles.Dim, res.RequestID))
	}
	w.Header(header)

	if res.Route == search.RouteGenerate {
		for i, c := range res.Candidates {
			w.candidate(i+1, c, explain)
		}
	} else {
		if err := res.Err(); err != nil {
			w.Warning(err.Error())
		} else {
			w.Warningf("%s (top score %.3f)", h.Err, res.TopConfidence)
		}
		for i, c := range res.Candidates {
			if !explain {
				break
			}
			w.candidate(i+1, c, true)
		}
		for _, s := range h.Suggestions {
			w.Status("?", s)
		}
	}

	if explain {
		w.sources(res)
	}
}

func (w *Writer) candidate(rank int, c *search.Candidate, explain bool) {
	source, url, text := "", "", ""
	if c.Chunk != nil {
		source, url, text = c.Chunk.Source, c.Chunk.URL, c.Chunk.Text
	}

	_, _ = fmt.Fprintf(w.out, "%2d. %s %s  %s %s\n",
		rank,
		w.render(w.styles.Score, fmt.Sprintf("%.3f", c.CombinedScore)),
		w.render(w.styles.Bar, ScoreBar(c.CombinedScore, 10)),
		c.ChunkID,
		w.render(w.styles.Label, "["+source+"]"))
	if url != "" {
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.render(w.styles.Dim, url))
	}
	_, _ = fmt.Fprintf(w.out, "    %s\n", Truncate(text, snippetRunes))

	if !explain {
		return
	}
	e := c.Explanation
	var flags []string
	if e.Boosted {
		flags = append(flags, "boosted")
	}
	if e.Avoided {
		flags = append(flags, "avoided")
	}
	if e.ContentTypeMatch {
		flags = append(flags, "content-type")
	}
	line := fmt.Sprintf("lexical=%.3f vector=%.3f fuzzy=%.3f base=%.3f adj=%+.3f lex_rank=%d",
		c.LexicalScore, c.VectorScore, c.FuzzyScore, e.Base, e.Adjustment, e.LexicalRank)
	if len(flags) > 0 {
		line += " " + strings.Join(flags, ",")
	}
	_, _ = fmt.Fprintf(w.out, "    %s\n", w.render(w.styles.Dim, line))
}

func (w *Writer) sources(res *search.RetrievalResult) {
	w.Newline()
	w.Header("Sources")
	for _, rep := range res.Sources {
		line := fmt.Sprintf("%-8s %-12s weight=%.3f hits=%-3d %s",
			rep.Source, rep.State, rep.Weight, rep.Hits, rep.Latency.Round(10_000))
		if rep.Error != "" {
			line += "  " + w.render(w.styles.Error, rep.Error)
		}
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	stages := make([]string, len(res.Stages))
	for i, s := range res.Stages {
		stages[i] = string(s)
	}
	w.KeyValue("stages", strings.Join(stages, " → "))
	w.KeyValue("duration", res.Duration.Round(10_000))
}

// CorpusStats prints a corpus summary.
func (w *Writer) CorpusStats(path string, s *store.CorpusStats) {
	w.Header("Corpus")
	w.KeyValue("path", path)
	w.KeyValue("chunks", s.Chunks)
	w.KeyValue("embedded", fmt.Sprintf("%d (%d dims)", s.Embedded, s.Dimensions))

	w.Newline()
	w.Header("By source")
	for _, k := range sortedKeys(s.BySource) {
		w.KeyValue(k, s.BySource[k])
	}

	types := make(map[string]int, len(s.ByContentType))
	for k, v := range s.ByContentType {
		types[string(k)] = v
	}
	w.Newline()
	w.Header("By content type")
	for _, k := range sortedKeys(types) {
		w.KeyValue(k, types[k])
	}
}

// Telemetry prints an aggregated retrieval snapshot.
func (w *Writer) Telemetry(s *telemetry.Snapshot) {
	w.Header("Retrieval")
	w.KeyValue("requests", s.TotalRequests)
	w.KeyValue("generate", s.Routes[search.RouteGenerate])
	w.KeyValue("fallback", fmt.Sprintf("%d (%.1f%%)", s.Routes[search.RouteFallback], s.FallbackRate()*100))
	for _, r := range sortedKeys(s.Reasons) {
		w.KeyValue(string(r), s.Reasons[r])
	}

	if len(s.Categories) > 0 {
		w.Newline()
		w.Header("Categories")
		for _, k := range sortedKeys(s.Categories) {
			w.KeyValue(k, s.Categories[k])
		}
	}

	if len(s.SourceStates) > 0 {
		w.Newline()
		w.Header("Sources")
		for _, src := range search.AllSources {
			states, ok := s.SourceStates[src]
			if !ok {
				continue
			}
			parts := make([]string, 0, len(states))
			for _, st := range sortedKeys(states) {
				parts = append(parts, fmt.Sprintf("%s=%d", st, states[st]))
			}
			w.KeyValue(string(src), strings.Join(parts, " "))
		}
	}

	w.Newline()
	w.Header("Latency")
	for _, b := range []telemetry.LatencyBucket{
		telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100,
		telemetry.BucketP500, telemetry.BucketP1000,
	} {
		w.KeyValue(string(b), s.LatencyDistribution[b])
	}

	if len(s.TopTerms) > 0 {
		w.Newline()
		w.Header("Top terms")
		for _, tc := range s.TopTerms {
			w.KeyValue(tc.Term, tc.Count)
		}
	}

	if len(s.RecentFallbacks) > 0 {
		w.Newline()
		w.Header("Recent fallbacks")
		for _, f := range s.RecentFallbacks {
			reason := ""
			if f.Reason != search.ReasonNone {
				reason = " " + string(f.Reason)
			}
			_, _ = fmt.Fprintf(w.out, "  %.3f %-16s %s%s\n",
				f.TopConfidence, f.Category, Truncate(f.Query, 60), w.render(w.styles.Dim, reason))
		}
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
