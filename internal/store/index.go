package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Index bundles the corpus with the lexical and vector structures built
// from it. It is built once at startup and shared read-only afterwards.
type Index struct {
	Corpus  *Corpus
	BM25    *BleveBM25Index
	Vectors *HNSWStore
}

// BuildIndex indexes every chunk's text into bleve and every chunk that
// carries an embedding into the HNSW graph.
func BuildIndex(ctx context.Context, corpus *Corpus, cfg BM25Config) (*Index, error) {
	start := time.Now()

	bm25, err := NewBleveBM25Index(cfg)
	if err != nil {
		return nil, err
	}
	vectors, err := NewHNSWStore(VectorStoreConfig{Dimensions: corpus.Dimensions()})
	if err != nil {
		_ = bm25.Close()
		return nil, err
	}

	chunks := corpus.Chunks()
	docs := make([]*Document, 0, len(chunks))
	var ids []string
	var vecs [][]float32
	for _, ch := range chunks {
		docs = append(docs, &Document{ID: ch.ID, Content: ch.Text})
		if len(ch.Embedding) > 0 {
			ids = append(ids, ch.ID)
			vecs = append(vecs, ch.Embedding)
		}
	}

	if err := bm25.Index(ctx, docs); err != nil {
		_ = bm25.Close()
		return nil, fmt.Errorf("build lexical index: %w", err)
	}
	if err := vectors.Add(ctx, ids, vecs); err != nil {
		_ = bm25.Close()
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	slog.Info("index_built",
		slog.Int("chunks", len(chunks)),
		slog.Int("vectors", len(ids)),
		slog.Int("dimensions", corpus.Dimensions()),
		slog.Duration("duration", time.Since(start)))

	return &Index{Corpus: corpus, BM25: bm25, Vectors: vectors}, nil
}

// Close releases the in-memory indexes.
func (i *Index) Close() error {
	err := i.BM25.Close()
	if verr := i.Vectors.Close(); err == nil {
		err = verr
	}
	return err
}
