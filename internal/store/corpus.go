package store

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// Corpus is the immutable chunk set served by the retrieval engine.
// All accessors are safe for concurrent use because nothing mutates a
// Corpus after NewCorpus returns.
type Corpus struct {
	byID       map[string]*Chunk
	ordered    []*Chunk
	dimensions int
}

// NewCorpus validates chunks and freezes them into a Corpus ordered by id.
// Chunks without an embedding are allowed; those that have one must all
// share the same dimension.
func NewCorpus(chunks []*Chunk) (*Corpus, error) {
	c := &Corpus{byID: make(map[string]*Chunk, len(chunks))}

	for i, ch := range chunks {
		if ch == nil {
			return nil, fmt.Errorf("chunk %d is nil", i)
		}
		if ch.ID == "" {
			return nil, fmt.Errorf("chunk %d has empty id", i)
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %q", ch.ID)
		}
		if !ch.ContentType.Valid() {
			return nil, fmt.Errorf("chunk %q: unknown content type %q", ch.ID, ch.ContentType)
		}
		if n := len(ch.Embedding); n > 0 {
			if c.dimensions == 0 {
				c.dimensions = n
			} else if n != c.dimensions {
				return nil, fmt.Errorf("chunk %q: %w", ch.ID, ErrDimensionMismatch{Expected: c.dimensions, Got: n})
			}
		}
		c.byID[ch.ID] = ch
		c.ordered = append(c.ordered, ch)
	}

	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].ID < c.ordered[j].ID
	})
	return c, nil
}

// Get returns the chunk with id, or nil.
func (c *Corpus) Get(id string) *Chunk {
	return c.byID[id]
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	return len(c.ordered)
}

// Chunks returns all chunks ordered by id. Callers must not modify them.
func (c *Corpus) Chunks() []*Chunk {
	return c.ordered
}

// Dimensions returns the embedding dimension, or 0 if no chunk has one.
func (c *Corpus) Dimensions() int {
	return c.dimensions
}

// Sources returns the distinct chunk source identifiers, sorted.
func (c *Corpus) Sources() []string {
	seen := make(map[string]struct{})
	for _, ch := range c.ordered {
		seen[ch.Source] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LoadCorpus opens the SQLite corpus at path read-side and freezes it.
// A missing file is reported with os.ErrNotExist in the chain.
func LoadCorpus(ctx context.Context, path string) (*Corpus, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	cs, err := OpenChunkStore(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cs.Close() }()

	chunks, err := cs.LoadChunks(ctx)
	if err != nil {
		return nil, err
	}
	return NewCorpus(chunks)
}
