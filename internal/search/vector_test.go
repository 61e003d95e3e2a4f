package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/store"
)

type failingEmbedder struct {
	embed.Embedder
}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model not loaded")
}

func newTestVectors(t *testing.T, e embed.Embedder, texts map[string]string) *store.HNSWStore {
	t.Helper()
	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: e.Dimensions()})
	require.NoError(t, err)

	ids := make([]string, 0, len(texts))
	vecs := make([][]float32, 0, len(texts))
	for id, text := range texts {
		v, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	require.NoError(t, vs.Add(context.Background(), ids, vecs))
	return vs
}

func TestVectorScorer_IdenticalTextScoresHighest(t *testing.T) {
	// Given: vectors for two chunks from the static embedder
	e := embed.NewStaticEmbedder()
	vs := newTestVectors(t, e, map[string]string{
		"match": "configure push notifications on android",
		"other": "monthly invoice export",
	})
	s := NewVectorScorer(e, vs)

	// When: searching with one chunk's exact text
	got, err := s.Search(context.Background(), "configure push notifications on android", 5)

	// Then: that chunk scores ~1 and outranks the other
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got["match"], 1e-4)
	assert.Less(t, got["other"], got["match"])
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestVectorScorer_EmbedderFailure(t *testing.T) {
	e := embed.NewStaticEmbedder()
	vs := newTestVectors(t, e, map[string]string{"a": "segmentation"})
	s := NewVectorScorer(failingEmbedder{e}, vs)

	_, err := s.Search(context.Background(), "segmentation", 5)

	assert.ErrorContains(t, err, "model not loaded")
}

func TestVectorScorer_EmptyIndex(t *testing.T) {
	e := embed.NewStaticEmbedder()
	vs, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: e.Dimensions()})
	require.NoError(t, err)
	s := NewVectorScorer(e, vs)

	got, err := s.Search(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, got)
}
