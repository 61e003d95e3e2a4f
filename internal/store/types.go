// Package store holds the read-only chunk corpus and the indexes built
// over it: a bleve BM25 index, an HNSW vector graph, and the SQLite file
// the ingestion side writes chunks into.
package store

import (
	"context"
	"fmt"
)

// ContentType tags what kind of text a chunk holds.
type ContentType string

const (
	ContentCode     ContentType = "code"
	ContentAPI      ContentType = "api"
	ContentTutorial ContentType = "tutorial"
	ContentFAQ      ContentType = "faq"
	ContentGeneral  ContentType = "general"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentCode, ContentAPI, ContentTutorial, ContentFAQ, ContentGeneral:
		return true
	default:
		return false
	}
}

// ParseContentType maps a tag to a ContentType. Empty maps to general.
func ParseContentType(s string) (ContentType, error) {
	if s == "" {
		return ContentGeneral, nil
	}
	t := ContentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}

// Chunk is the minimal retrievable unit of indexed text. Chunks are
// written by the ingestion pipeline and never mutated while serving.
type Chunk struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	URL         string      `json:"url,omitempty"`
	Text        string      `json:"text"`
	ContentType ContentType `json:"content_type"`
	Language    string      `json:"language,omitempty"`
	Embedding   []float32   `json:"embedding,omitempty"`
}

// Document is what the lexical index sees of a chunk.
type Document struct {
	ID      string
	Content string
}

// BM25Result is one lexical hit with its raw, unnormalized BM25 score.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// VectorResult is one nearest-neighbour hit. Score is in [0,1].
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// BM25Index is a keyword index.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Count() int
	Close() error
}

// VectorStore is an approximate nearest-neighbour index.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Count() int
	Dimensions() int
	Close() error
}

// ErrDimensionMismatch indicates a vector of the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (re-run 'amanrag import' with the configured embedder)", e.Expected, e.Got)
}
