package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// memStore implements ChunkStore for testing.
type memStore struct {
	chunks  []*store.Chunk
	saves   int
	loadErr error
}

func (m *memStore) LoadChunks(context.Context) ([]*store.Chunk, error) {
	return m.chunks, m.loadErr
}

func (m *memStore) SaveChunks(_ context.Context, chunks []*store.Chunk) error {
	m.saves++
	m.chunks = chunks
	return nil
}

func TestReadJSONL(t *testing.T) {
	input := `{"id":"a","source":"docs","text":"alpha","content_type":"faq"}

{"id":"b","text":"beta","embedding":[1,0]}
`
	chunks, err := ReadJSONL(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, store.ContentFAQ, chunks[0].ContentType)
	assert.Equal(t, store.ContentGeneral, chunks[1].ContentType)
	assert.Equal(t, []float32{1, 0}, chunks[1].Embedding)
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", "{\"id\":\"a\"}\n{", "line 2"},
		{"no id", `{"text":"x"}`, "no id"},
		{"bad content type", `{"id":"a","content_type":"video"}`, "chunk a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONL(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, amerrors.ErrCodeInvalidInput, amerrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMerge(t *testing.T) {
	existing := []*store.Chunk{{ID: "a", Text: "old"}, {ID: "b"}}
	incoming := []*store.Chunk{{ID: "c"}, {ID: "a", Text: "new"}}

	merged, added := Merge(existing, incoming)

	assert.Equal(t, 1, added)
	ids := make([]string, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "new", merged[0].Text)
}

func TestNewImporter_NilStore(t *testing.T) {
	_, err := NewImporter(nil)
	assert.True(t, errors.Is(err, ErrNilStore))
}

func TestImport_EmbedsOnlyMissing(t *testing.T) {
	// Given: one stored chunk with a static vector
	e := embed.NewStaticEmbedder()
	vec, err := e.Embed(context.Background(), "stored")
	require.NoError(t, err)
	ms := &memStore{chunks: []*store.Chunk{{ID: "s", Text: "stored", ContentType: store.ContentGeneral, Embedding: vec}}}

	var progress [][2]int
	imp, err := NewImporter(ms,
		WithEmbedder(e),
		WithBatchSize(2),
		WithProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) }))
	require.NoError(t, err)

	// When: importing three new chunks
	stats, err := imp.Import(context.Background(), []*store.Chunk{
		{ID: "a", Text: "one", ContentType: store.ContentGeneral},
		{ID: "b", Text: "two", ContentType: store.ContentGeneral},
		{ID: "c", Text: "three", ContentType: store.ContentGeneral},
	})

	// Then: only those are embedded, in batches of two
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Added)
	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, embed.StaticDimensions, stats.Dimensions)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, progress)
	assert.Equal(t, vec, ms.chunks[0].Embedding)
	for _, c := range ms.chunks {
		assert.Len(t, c.Embedding, embed.StaticDimensions, c.ID)
	}
}

func TestImport_FactoryNotCalledWhenNothingToEmbed(t *testing.T) {
	ms := &memStore{}
	called := false
	imp, err := NewImporter(ms, WithEmbedderFactory(func(context.Context) (embed.Embedder, error) {
		called = true
		return nil, errors.New("unreachable")
	}))
	require.NoError(t, err)

	stats, err := imp.Import(context.Background(), []*store.Chunk{
		{ID: "a", Text: "x", ContentType: store.ContentGeneral, Embedding: []float32{1, 0}},
	})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 2, stats.Dimensions)
}

func TestImport_FactoryFailure(t *testing.T) {
	imp, err := NewImporter(&memStore{}, WithEmbedderFactory(func(context.Context) (embed.Embedder, error) {
		return nil, errors.New("connection refused")
	}))
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), []*store.Chunk{{ID: "a", Text: "x", ContentType: store.ContentGeneral}})

	assert.Equal(t, amerrors.ErrCodeEmbedderFailed, amerrors.GetCode(err))
}

func TestImport_DimensionMismatch(t *testing.T) {
	ms := &memStore{chunks: []*store.Chunk{{ID: "v", Text: "x", ContentType: store.ContentGeneral, Embedding: []float32{1, 2, 3}}}}
	imp, err := NewImporter(ms, WithEmbedder(embed.NewStaticEmbedder()))
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), []*store.Chunk{{ID: "n", Text: "y", ContentType: store.ContentGeneral}})

	assert.Equal(t, amerrors.ErrCodeDimensionMismatch, amerrors.GetCode(err))
	assert.Equal(t, 0, ms.saves)
}

func TestImport_InconsistentSetIsNotSaved(t *testing.T) {
	// Given: no embedder and chunks with different vector sizes
	ms := &memStore{}
	imp, err := NewImporter(ms)
	require.NoError(t, err)

	// When: importing them
	_, err = imp.Import(context.Background(), []*store.Chunk{
		{ID: "a", Text: "x", ContentType: store.ContentGeneral, Embedding: []float32{1, 0}},
		{ID: "b", Text: "y", ContentType: store.ContentGeneral, Embedding: []float32{1, 0, 0}},
	})

	// Then: validation fails before any write
	assert.Equal(t, amerrors.ErrCodeInvalidInput, amerrors.GetCode(err))
	assert.Equal(t, 0, ms.saves)
}

func TestImport_Empty(t *testing.T) {
	imp, err := NewImporter(&memStore{})
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), nil)

	assert.Equal(t, amerrors.ErrCodeEmptyCorpus, amerrors.GetCode(err))
}
