package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBM25(t *testing.T, docs ...*Document) *BleveBM25Index {
	t.Helper()
	idx, err := NewBleveBM25Index(DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Index(context.Background(), docs))
	return idx
}

func TestBleveBM25Index_IndexAndSearch(t *testing.T) {
	// Given: three documentation chunks
	idx := newTestBM25(t,
		&Document{ID: "c1", Content: "Android SDK entegrasyon adımları"},
		&Document{ID: "c2", Content: "iOS SDK kurulum rehberi"},
		&Document{ID: "c3", Content: "Kampanya raporları"},
	)

	// When: searching for a shared term
	results, err := idx.Search(context.Background(), "sdk", 10)
	require.NoError(t, err)

	// Then: both SDK chunks match with positive scores
	require.Len(t, results, 2)
	ids := []string{results[0].DocID, results[1].DocID}
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Equal(t, []string{"sdk"}, results[0].MatchedTerms)
	assert.Equal(t, 3, idx.Count())
}

func TestBleveBM25Index_MoreTermsRankHigher(t *testing.T) {
	idx := newTestBM25(t,
		&Document{ID: "a", Content: "push notification token registration"},
		&Document{ID: "b", Content: "notification center"},
	)

	results, err := idx.Search(context.Background(), "push notification token", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].DocID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestBleveBM25Index_TurkishCaseInsensitive(t *testing.T) {
	idx := newTestBM25(t, &Document{ID: "tr", Content: "İPTAL işlemleri"})

	results, err := idx.Search(context.Background(), "iptal", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tr", results[0].DocID)
}

func TestBleveBM25Index_StopWordsOnlyQuery(t *testing.T) {
	idx := newTestBM25(t, &Document{ID: "x", Content: "the setup of the SDK"})

	results, err := idx.Search(context.Background(), "the and of", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveBM25Index_EmptyQueryAndLimit(t *testing.T) {
	idx := newTestBM25(t, &Document{ID: "x", Content: "sdk"})

	results, err := idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(context.Background(), "sdk", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveBM25Index_Closed(t *testing.T) {
	idx, err := NewBleveBM25Index(DefaultBM25Config())
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "sdk", 5)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Count())
}
