package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestStaticEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "Android SDK entegrasyonu")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Android SDK entegrasyonu")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-5)
}

func TestStaticEmbedder_SimilarTextCloser(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	q, _ := e.Embed(ctx, "push notification setup")
	near, _ := e.Embed(ctx, "how to set up push notifications")
	far, _ := e.Embed(ctx, "invoice billing export")

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestStaticEmbedder_BlankIsZero(t *testing.T) {
	v, err := NewStaticEmbedder().Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestStaticEmbedder_Batch(t *testing.T) {
	e := NewStaticEmbedder()
	vecs, err := e.EmbedBatch(context.Background(), []string{"a b", "cd ef"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "static", e.ModelName())
}

func TestTrigrams(t *testing.T) {
	assert.Equal(t, []string{"işl", "şle", "lem"}, trigrams("İşlem"))
	assert.Nil(t, trigrams("ab"))
}
