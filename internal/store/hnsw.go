package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// VectorStoreConfig configures the HNSW graph.
type VectorStoreConfig struct {
	Dimensions int
	// M is the max neighbours per node (default 16).
	M int
	// EfSearch is the candidate list size at query time (default 64).
	EfSearch int
}

// HNSWStore is an in-memory cosine HNSW graph keyed by chunk id.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	idMap  map[string]uint64
	keyMap map[uint64]string
	closed bool
}

// NewHNSWStore creates an empty graph.
func NewHNSWStore(cfg VectorStoreConfig) (*HNSWStore, error) {
	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("invalid dimensions %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25

	return &HNSWStore{
		graph:  g,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

// Add inserts vectors. Ids must be new; the corpus is immutable so
// re-adding an id is an error rather than an update.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for i, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
		if _, dup := s.idMap[ids[i]]; dup {
			return fmt.Errorf("duplicate vector id %q", ids[i])
		}
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := uint64(len(s.idMap))

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Search returns up to k nearest neighbours of query, best first.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []*VectorResult{}, nil
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeVectorInPlace(q)

	nodes := s.graph.Search(q, k)
	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue
		}
		d := s.graph.Distance(q, node.Value)
		results = append(results, &VectorResult{
			ID:       id,
			Distance: d,
			Score:    distanceToScore(d),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

func (s *HNSWStore) Dimensions() int {
	return s.config.Dimensions
}

func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

var _ VectorStore = (*HNSWStore)(nil)

func normalizeVectorInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore maps cosine distance in [0,2] to similarity in [0,1].
func distanceToScore(d float32) float32 {
	score := 1 - d/2
	switch {
	case math.IsNaN(float64(score)), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
