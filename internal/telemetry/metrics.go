// Package telemetry records retrieval outcomes for tuning thresholds and
// category triggers. All data stays local; Prometheus output is written
// to a textfile or scraped from an in-process registry.
package telemetry

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int // next write position
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer; capacity <= 0 means 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
		return out
	}
	n := copy(out, b.items[b.head:])
	copy(out[n:], b.items[:b.head])
	return out
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear empties the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.items)
	b.head = 0
	b.size = 0
}

// TermCount is a query term and how often it appeared.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// FallbackQuery is a query the gate refused to answer.
type FallbackQuery struct {
	Query         string               `json:"query"`
	Category      string               `json:"category"`
	Reason        search.FailureReason `json:"reason,omitempty"`
	TopConfidence float64              `json:"top_confidence"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	TotalRequests       int64                                         `json:"total_requests"`
	Routes              map[search.Route]int64                        `json:"routes"`
	Reasons             map[search.FailureReason]int64                `json:"reasons,omitempty"`
	Categories          map[string]int64                              `json:"categories"`
	SourceStates        map[search.Source]map[search.SourceState]int64 `json:"source_states"`
	LatencyDistribution map[LatencyBucket]int64                       `json:"latency_distribution"`
	TopTerms            []TermCount                                   `json:"top_terms"`
	RecentFallbacks     []FallbackQuery                               `json:"recent_fallbacks"`
	Since               time.Time                                     `json:"since"`
}

// FallbackRate returns the share of requests routed to FALLBACK, in [0,1].
func (s *Snapshot) FallbackRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Routes[search.RouteFallback]) / float64(s.TotalRequests)
}

// Config sizes the in-memory collector.
type Config struct {
	TopTermsCapacity int // default 100
	FallbackCapacity int // default 100
}

// DefaultConfig returns the default collector sizes.
func DefaultConfig() Config {
	return Config{TopTermsCapacity: 100, FallbackCapacity: 100}
}

// RetrievalMetrics aggregates finished requests in memory. It implements
// search.Recorder and is safe for concurrent use.
type RetrievalMetrics struct {
	mu sync.Mutex

	total        int64
	routes       map[search.Route]int64
	reasons      map[search.FailureReason]int64
	categories   map[string]int64
	sourceStates map[search.Source]map[search.SourceState]int64
	latencies    map[LatencyBucket]int64
	topTerms     *lru.Cache[string, int64]
	fallbacks    *CircularBuffer[FallbackQuery]
	since        time.Time

	now func() time.Time
}

// NewRetrievalMetrics creates an empty collector.
func NewRetrievalMetrics(cfg Config) *RetrievalMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.FallbackCapacity <= 0 {
		cfg.FallbackCapacity = def.FallbackCapacity
	}
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	m := &RetrievalMetrics{
		topTerms:  topTerms,
		fallbacks: NewCircularBuffer[FallbackQuery](cfg.FallbackCapacity),
		now:       time.Now,
	}
	m.resetLocked()
	return m
}

func (m *RetrievalMetrics) resetLocked() {
	m.total = 0
	m.routes = make(map[search.Route]int64)
	m.reasons = make(map[search.FailureReason]int64)
	m.categories = make(map[string]int64)
	m.sourceStates = make(map[search.Source]map[search.SourceState]int64)
	m.latencies = make(map[LatencyBucket]int64)
	m.topTerms.Purge()
	m.fallbacks.Clear()
	m.since = m.now()
}

// RecordRetrieval implements search.Recorder.
func (m *RetrievalMetrics) RecordRetrieval(res *search.RetrievalResult) {
	if res == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.routes[res.Route]++
	if res.Reason != search.ReasonNone {
		m.reasons[res.Reason]++
	}
	category := search.CategoryGeneral
	if res.Profile != nil {
		category = res.Profile.Category
	}
	m.categories[category]++
	m.latencies[LatencyToBucket(res.Duration)]++

	for _, rep := range res.Sources {
		states, ok := m.sourceStates[rep.Source]
		if !ok {
			states = make(map[search.SourceState]int64)
			m.sourceStates[rep.Source] = states
		}
		states[rep.State]++
	}

	for _, term := range store.Tokenize(res.Query) {
		if len([]rune(term)) < 3 {
			continue
		}
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if res.Route == search.RouteFallback && res.Reason != search.ReasonEmptyQuery {
		m.fallbacks.Add(FallbackQuery{
			Query:         res.Query,
			Category:      category,
			Reason:        res.Reason,
			TopConfidence: res.TopConfidence,
			Timestamp:     m.now(),
		})
	}
}

// Snapshot copies the current aggregates.
func (m *RetrievalMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Drain returns a snapshot and resets the collector, so that successive
// drains can be persisted without double counting.
func (m *RetrievalMetrics) Drain() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snapshotLocked()
	m.resetLocked()
	return s
}

func (m *RetrievalMetrics) snapshotLocked() *Snapshot {
	s := &Snapshot{
		TotalRequests:       m.total,
		Routes:              copyCounts(m.routes),
		Reasons:             copyCounts(m.reasons),
		Categories:          copyCounts(m.categories),
		SourceStates:        make(map[search.Source]map[search.SourceState]int64, len(m.sourceStates)),
		LatencyDistribution: copyCounts(m.latencies),
		RecentFallbacks:     m.fallbacks.Items(),
		Since:               m.since,
	}
	for src, states := range m.sourceStates {
		s.SourceStates[src] = copyCounts(states)
	}

	for _, term := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	return s
}

func copyCounts[K comparable](in map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ search.Recorder = (*RetrievalMetrics)(nil)
