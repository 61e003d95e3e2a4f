package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// DefaultBatchSize is how many texts go to the embedder per call.
const DefaultBatchSize = 64

// ErrNilStore is returned when creating an Importer without a store.
var ErrNilStore = errors.New("chunk store is required")

// ChunkStore is the corpus persistence an Importer writes to.
// *store.SQLiteChunkStore implements it.
type ChunkStore interface {
	LoadChunks(ctx context.Context) ([]*store.Chunk, error)
	SaveChunks(ctx context.Context, chunks []*store.Chunk) error
}

// EmbedderFactory builds the embedder on first use, so imports where
// every chunk already has a vector never contact the provider.
type EmbedderFactory func(ctx context.Context) (embed.Embedder, error)

// ImportStats describes one Import call.
type ImportStats struct {
	Incoming   int
	Added      int
	Embedded   int
	Total      int
	Dimensions int
	Model      string
}

// Importer merges chunks into a corpus.
type Importer struct {
	store     ChunkStore
	factory   EmbedderFactory
	batchSize int
	progress  func(done, total int)
	logger    *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithEmbedderFactory enables embedding of chunks without vectors.
// Without it chunks are stored as given.
func WithEmbedderFactory(f EmbedderFactory) Option {
	return func(i *Importer) {
		i.factory = f
	}
}

// WithEmbedder embeds with e; the caller keeps ownership.
func WithEmbedder(e embed.Embedder) Option {
	return func(i *Importer) {
		i.factory = func(context.Context) (embed.Embedder, error) {
			return nopCloser{e}, nil
		}
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithProgress is called after every embedded batch.
func WithProgress(fn func(done, total int)) Option {
	return func(i *Importer) {
		i.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		i.logger = l
	}
}

// NewImporter creates an importer writing to cs.
func NewImporter(cs ChunkStore, opts ...Option) (*Importer, error) {
	if cs == nil {
		return nil, ErrNilStore
	}
	i := &Importer{
		store:     cs,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Import merges incoming into the stored corpus by id, embeds every chunk
// still missing a vector, validates the merged set and saves it. Nothing
// is written when validation fails.
func (i *Importer) Import(ctx context.Context, incoming []*store.Chunk) (*ImportStats, error) {
	if len(incoming) == 0 {
		return nil, amerrors.New(amerrors.ErrCodeEmptyCorpus, "no chunks to import", nil)
	}

	existing, err := i.store.LoadChunks(ctx)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeCorpusCorrupt, "failed to read corpus", err)
	}
	merged, added := Merge(existing, incoming)
	stats := &ImportStats{Incoming: len(incoming), Added: added, Total: len(merged)}

	i.logger.Info("import_merged",
		slog.Int("incoming", len(incoming)),
		slog.Int("new", added),
		slog.Int("existing", len(existing)))

	if i.factory != nil {
		if err := i.embedMissing(ctx, merged, stats); err != nil {
			return nil, err
		}
	}

	corpus, err := store.NewCorpus(merged)
	if err != nil {
		return nil, amerrors.ValidationError("imported chunks are inconsistent", err)
	}
	stats.Dimensions = corpus.Dimensions()

	if err := i.store.SaveChunks(ctx, merged); err != nil {
		return nil, amerrors.CorpusError("failed to save chunks", err)
	}
	return stats, nil
}

// Merge overlays incoming onto existing by id and reports how many ids
// were new. Existing order is kept; new ids follow in input order.
func Merge(existing, incoming []*store.Chunk) ([]*store.Chunk, int) {
	pos := make(map[string]int, len(existing)+len(incoming))
	merged := make([]*store.Chunk, 0, len(existing)+len(incoming))
	for _, c := range existing {
		pos[c.ID] = len(merged)
		merged = append(merged, c)
	}
	added := 0
	for _, c := range incoming {
		if idx, ok := pos[c.ID]; ok {
			merged[idx] = c
			continue
		}
		pos[c.ID] = len(merged)
		merged = append(merged, c)
		added++
	}
	return merged, added
}

func (i *Importer) embedMissing(ctx context.Context, chunks []*store.Chunk, stats *ImportStats) error {
	var todo []*store.Chunk
	dims := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			todo = append(todo, c)
		} else if dims == 0 {
			dims = len(c.Embedding)
		}
	}
	if len(todo) == 0 {
		return nil
	}

	emb, err := i.factory(ctx)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeEmbedderFailed, "failed to start embedder", err).
			WithSuggestion("Use --no-embed to import without vectors")
	}
	defer func() { _ = emb.Close() }()

	if dims != 0 && emb.Dimensions() != dims {
		return amerrors.New(amerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("%s produces %d dimensions but the corpus stores %d", emb.ModelName(), emb.Dimensions(), dims), nil).
			WithSuggestion("Configure the embedder used to build the corpus")
	}

	for start := 0; start < len(todo); start += i.batchSize {
		end := min(start+i.batchSize, len(todo))
		texts := make([]string, 0, end-start)
		for _, c := range todo[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		for j, v := range vecs {
			todo[start+j].Embedding = v
		}
		if i.progress != nil {
			i.progress(end, len(todo))
		}
	}

	stats.Embedded = len(todo)
	stats.Model = emb.ModelName()
	i.logger.Info("import_embedded",
		slog.String("model", emb.ModelName()),
		slog.Int("chunks", len(todo)),
		slog.Int("dimensions", emb.Dimensions()))
	return nil
}

// nopCloser keeps a caller-owned embedder open after Import.
type nopCloser struct {
	embed.Embedder
}

func (nopCloser) Close() error { return nil }
