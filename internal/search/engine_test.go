package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func buildTestIndex(t *testing.T, e embed.Embedder, chunks ...*store.Chunk) *store.Index {
	t.Helper()
	ctx := context.Background()
	for _, ch := range chunks {
		if e != nil {
			v, err := e.Embed(ctx, ch.Text)
			require.NoError(t, err)
			ch.Embedding = v
		}
	}
	corpus := newTestCorpus(t, chunks...)
	idx, err := store.BuildIndex(ctx, corpus, store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func docsCorpus() []*store.Chunk {
	return []*store.Chunk{
		{ID: "android-setup", Source: "developer-guide", ContentType: store.ContentTutorial,
			Text: "Android SDK setup: add the dependency, initialize the SDK and configure the integration steps."},
		{ID: "rest-auth", Source: "api-documentation", ContentType: store.ContentAPI,
			Text: "REST API authentication uses a bearer token sent with every HTTP request."},
		{ID: "push-faq", Source: "faq", ContentType: store.ContentFAQ,
			Text: "Push notifications not delivered? Check the device token and the error log."},
	}
}

func TestEngine_EndToEnd_IntegrationQuery(t *testing.T) {
	// Given: a real lexical, vector and fuzzy stack over three chunks
	e := embed.NewStaticEmbedder()
	idx := buildTestIndex(t, e, docsCorpus()...)
	o, err := NewFromIndex(DefaultConfig(), idx, e, nil, WithLogger(discardLogger()))
	require.NoError(t, err)

	// When: asking an integration question
	res := o.Retrieve(context.Background(), "Android SDK entegrasyonu")

	// Then: the developer guide wins and answers directly
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "integration", res.Profile.Category)
	assert.Equal(t, "android-setup", res.Candidates[0].ChunkID)
	assert.Equal(t, RouteGenerate, res.Route)
	assert.LessOrEqual(t, len(res.Candidates), 5)
	for _, rep := range res.Sources {
		assert.Equal(t, SourceOK, rep.State, rep.Source)
	}

	seen := map[string]bool{}
	for _, c := range res.Candidates {
		assert.False(t, seen[c.ChunkID], "duplicate %s", c.ChunkID)
		seen[c.ChunkID] = true
	}
}

func TestEngine_WithoutEmbedderSkipsVector(t *testing.T) {
	idx := buildTestIndex(t, nil, docsCorpus()...)
	o, err := NewFromIndex(DefaultConfig(), idx, nil, nil, WithLogger(discardLogger()))
	require.NoError(t, err)

	res := o.Retrieve(context.Background(), "REST API authentication token")

	vec, _ := res.Source(SourceVector)
	assert.Equal(t, SourceSkipped, vec.State)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "rest-auth", res.Candidates[0].ChunkID)
}
