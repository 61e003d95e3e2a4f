package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

func answered() *search.RetrievalResult {
	return &search.RetrievalResult{
		RequestID: "req-1",
		Query:     "Android SDK entegrasyonu",
		Profile: &search.QueryProfile{
			Query: "Android SDK entegrasyonu", Category: "integration", TargetK: 5, Language: "tr",
		},
		Route:         search.RouteGenerate,
		TopConfidence: 0.82,
		Candidates: []*search.Candidate{{
			ChunkID: "android-setup",
			Chunk: &store.Chunk{
				ID: "android-setup", Source: "developer-guide",
				URL: "https://docs.example.com/android", Text: "Add the SDK to build.gradle",
			},
			LexicalScore: 0.9, VectorScore: 0.7, FuzzyScore: 0.6, CombinedScore: 0.82,
			Explanation: search.Explanation{Base: 0.74, Adjustment: 1, Boosted: true, LexicalRank: 1},
		}},
		Sources: []search.SourceReport{
			{Source: search.SourceLexical, State: search.SourceOK, Hits: 3, Weight: 0.3, Latency: time.Millisecond},
			{Source: search.SourceVector, State: search.SourceTimedOut, Weight: 0, Error: "deadline exceeded"},
		},
		Stages:   []search.Stage{search.StageAnalyzing, search.StageSearching, search.StageDone},
		Duration: 3 * time.Millisecond,
	}
}

func TestWriter_Retrieval_Generate(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Retrieval(answered(), false)

	out := buf.String()
	assert.Contains(t, out, "GENERATE")
	assert.Contains(t, out, "category=integration k=5 lang=tr")
	assert.Contains(t, out, "android-setup")
	assert.Contains(t, out, "[developer-guide]")
	assert.Contains(t, out, "https://docs.example.com/android")
	assert.NotContains(t, out, "lexical=")
}

func TestWriter_Retrieval_Explain(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Retrieval(answered(), true)

	out := buf.String()
	assert.Contains(t, out, "lexical=0.900 vector=0.700 fuzzy=0.600")
	assert.Contains(t, out, "boosted")
	assert.Contains(t, out, "Sources")
	assert.Contains(t, out, "timeout")
	assert.Contains(t, out, "deadline exceeded")
	assert.Contains(t, out, "ANALYZING → SEARCHING → DONE")
}

func TestWriter_Retrieval_FallbackShowsSuggestions(t *testing.T) {
	res := answered()
	res.Route = search.RouteFallback
	res.TopConfidence = 0.2

	buf := &bytes.Buffer{}
	New(buf).Retrieval(res, false)

	out := buf.String()
	assert.Contains(t, out, "FALLBACK")
	assert.Contains(t, out, "insufficient evidence")
	assert.Contains(t, out, "Hangi SDK/platform?")
	assert.NotContains(t, out, "android-setup")
}

func TestWriter_Retrieval_FailureReason(t *testing.T) {
	res := answered()
	res.Route = search.RouteFallback
	res.Reason = search.ReasonAllSourcesFailed
	res.Candidates = nil

	buf := &bytes.Buffer{}
	New(buf).Retrieval(res, false)

	assert.Contains(t, buf.String(), "ERR_503_ALL_SOURCES_FAILED")
}

func TestWriter_CorpusStats(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).CorpusStats("/tmp/corpus.db", &store.CorpusStats{
		Chunks: 3, Embedded: 2, Dimensions: 256,
		BySource:      map[string]int{"faq": 1, "developer-guide": 2},
		ByContentType: map[store.ContentType]int{store.ContentTutorial: 2, store.ContentFAQ: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "/tmp/corpus.db")
	assert.Contains(t, out, "2 (256 dims)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("developer-guide")), bytes.Index(buf.Bytes(), []byte("faq:")))
}

func TestWriter_Telemetry(t *testing.T) {
	m := telemetry.NewRetrievalMetrics(telemetry.DefaultConfig())
	m.RecordRetrieval(answered())
	fb := answered()
	fb.Route = search.RouteFallback
	fb.Query = "uçuş modu"
	m.RecordRetrieval(fb)

	buf := &bytes.Buffer{}
	New(buf).Telemetry(m.Snapshot())

	out := buf.String()
	assert.Contains(t, out, "1 (50.0%)")
	assert.Contains(t, out, "integration")
	assert.Contains(t, out, "ok=2")
	assert.Contains(t, out, "timeout=2")
	assert.Contains(t, out, "Recent fallbacks")
	assert.Contains(t, out, "uçuş modu")
}
