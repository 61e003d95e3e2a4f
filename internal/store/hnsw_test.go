package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStore_SearchOrdersBySimilarity(t *testing.T) {
	// Given: three 3-d vectors
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 3})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.Add(context.Background(),
		[]string{"x", "y", "xy"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	)
	require.NoError(t, err)

	// When: searching near the x axis
	results, err := s.Search(context.Background(), []float32{2, 0, 0}, 3)
	require.NoError(t, err)

	// Then: x is first with a perfect score, y is orthogonal
	require.Len(t, results, 3)
	assert.Equal(t, "x", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "xy", results[1].ID)
	assert.Equal(t, "y", results[2].ID)
	assert.InDelta(t, 0.5, results[2].Score, 1e-5)
	assert.Equal(t, 3, s.Count())
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 2})
	require.NoError(t, err)

	err = s.Add(context.Background(), []string{"a"}, [][]float32{{1, 2, 3}})
	var dm ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Got)

	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 2}}))
	_, err = s.Search(context.Background(), []float32{1}, 1)
	assert.ErrorAs(t, err, &dm)
}

func TestHNSWStore_DuplicateID(t *testing.T) {
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 2})
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}}))

	err = s.Add(context.Background(), []string{"a"}, [][]float32{{0, 1}})
	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestHNSWStore_EmptyGraph(t *testing.T) {
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 0})
	require.NoError(t, err)

	results, err := s.Search(context.Background(), []float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0), 1e-6)
	assert.InDelta(t, 0.5, distanceToScore(1), 1e-6)
	assert.InDelta(t, 0.0, distanceToScore(2), 1e-6)
	assert.Equal(t, float32(0), distanceToScore(3))
	assert.Equal(t, float32(1), distanceToScore(-0.1))
}
