package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/search"
)

func generated(query, category string, latency time.Duration) *search.RetrievalResult {
	return &search.RetrievalResult{
		Query:         query,
		Profile:       &search.QueryProfile{Query: query, Category: category},
		Route:         search.RouteGenerate,
		TopConfidence: 0.8,
		Candidates:    []*search.Candidate{{ChunkID: "a", CombinedScore: 0.8}},
		Sources: []search.SourceReport{
			{Source: search.SourceLexical, State: search.SourceOK},
			{Source: search.SourceVector, State: search.SourceOK},
			{Source: search.SourceFuzzy, State: search.SourceOK},
		},
		Duration: latency,
	}
}

func fellBack(query string, reason search.FailureReason) *search.RetrievalResult {
	return &search.RetrievalResult{
		Query:         query,
		Profile:       &search.QueryProfile{Query: query, Category: search.CategoryGeneral},
		Route:         search.RouteFallback,
		Reason:        reason,
		TopConfidence: 0.2,
		Sources: []search.SourceReport{
			{Source: search.SourceLexical, State: search.SourceOK},
			{Source: search.SourceVector, State: search.SourceTimedOut},
			{Source: search.SourceFuzzy, State: search.SourceOK},
		},
		Duration: 120 * time.Millisecond,
	}
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{0, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{499 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), tt.d.String())
	}
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	b := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	assert.Equal(t, []int{3, 4, 5}, b.Items())
	assert.Equal(t, 3, b.Size())

	b.Clear()
	assert.Empty(t, b.Items())
}

func TestCircularBuffer_PartiallyFilled(t *testing.T) {
	b := NewCircularBuffer[string](0)
	b.Add("x")
	b.Add("y")
	assert.Equal(t, []string{"x", "y"}, b.Items())
}

func TestRetrievalMetrics_Aggregates(t *testing.T) {
	// Given: two answered requests and one low-confidence fallback
	m := NewRetrievalMetrics(DefaultConfig())

	// When: recording them
	m.RecordRetrieval(generated("Android SDK entegrasyonu", "integration", 5*time.Millisecond))
	m.RecordRetrieval(generated("android crash", "troubleshooting", 30*time.Millisecond))
	m.RecordRetrieval(fellBack("uçuş modu", search.ReasonNone))

	// Then: counters reflect every dimension
	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(2), s.Routes[search.RouteGenerate])
	assert.Equal(t, int64(1), s.Routes[search.RouteFallback])
	assert.InDelta(t, 1.0/3.0, s.FallbackRate(), 1e-9)
	assert.Equal(t, int64(1), s.Categories["integration"])
	assert.Equal(t, int64(1), s.Categories[search.CategoryGeneral])
	assert.Equal(t, int64(1), s.SourceStates[search.SourceVector][search.SourceTimedOut])
	assert.Equal(t, int64(3), s.SourceStates[search.SourceLexical][search.SourceOK])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP500])

	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "android", Count: 2}, s.TopTerms[0])

	require.Len(t, s.RecentFallbacks, 1)
	assert.Equal(t, "uçuş modu", s.RecentFallbacks[0].Query)
	assert.Equal(t, 0.2, s.RecentFallbacks[0].TopConfidence)
}

func TestRetrievalMetrics_ReasonsAndEmptyQuery(t *testing.T) {
	m := NewRetrievalMetrics(DefaultConfig())

	m.RecordRetrieval(fellBack("", search.ReasonEmptyQuery))
	m.RecordRetrieval(fellBack("hata", search.ReasonAllSourcesFailed))
	m.RecordRetrieval(nil)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.Reasons[search.ReasonEmptyQuery])
	assert.Equal(t, int64(1), s.Reasons[search.ReasonAllSourcesFailed])
	// blank queries are not worth reviewing
	require.Len(t, s.RecentFallbacks, 1)
	assert.Equal(t, search.ReasonAllSourcesFailed, s.RecentFallbacks[0].Reason)
}

func TestRetrievalMetrics_DrainResets(t *testing.T) {
	m := NewRetrievalMetrics(DefaultConfig())
	m.RecordRetrieval(fellBack("ödeme hatası", search.ReasonNone))

	first := m.Drain()
	second := m.Snapshot()

	assert.Equal(t, int64(1), first.TotalRequests)
	assert.Len(t, first.RecentFallbacks, 1)
	assert.Zero(t, second.TotalRequests)
	assert.Empty(t, second.RecentFallbacks)
	assert.Empty(t, second.TopTerms)
}

func TestRetrievalMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewRetrievalMetrics(DefaultConfig())
	m.RecordRetrieval(generated("api auth", "api", time.Millisecond))

	s := m.Snapshot()
	s.Routes[search.RouteGenerate] = 99
	s.SourceStates[search.SourceLexical][search.SourceOK] = 99

	fresh := m.Snapshot()
	assert.Equal(t, int64(1), fresh.Routes[search.RouteGenerate])
	assert.Equal(t, int64(1), fresh.SourceStates[search.SourceLexical][search.SourceOK])
}

func TestRetrievalMetrics_Concurrent(t *testing.T) {
	m := NewRetrievalMetrics(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.RecordRetrieval(generated("sdk kurulum", "integration", time.Millisecond))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), m.Snapshot().TotalRequests)
}
