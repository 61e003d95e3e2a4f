package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/Aman-CERP/amanrag/internal/store"
)

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// StaticEmbedder hashes tokens and character trigrams into a fixed-size
// vector. It needs no network or model files and is fully deterministic,
// at the cost of only capturing surface similarity.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed returns a unit vector, or the zero vector for blank text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}
	return normalizeVector(generateVector(trimmed)), nil
}

func generateVector(text string) []float32 {
	v := make([]float32, StaticDimensions)
	for _, tok := range store.Tokenize(text) {
		v[hashToIndex(tok)] += tokenWeight
	}
	for _, g := range trigrams(text) {
		v[hashToIndex(g)] += ngramWeight
	}
	return v
}

// trigrams slides a three-rune window over the case-folded letters and
// digits of text.
func trigrams(text string) []string {
	var runes []rune
	for _, r := range store.FoldCase(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			runes = append(runes, r)
		}
	}
	if len(runes) < ngramSize {
		return nil
	}
	out := make([]string, 0, len(runes)-ngramSize+1)
	for i := 0; i+ngramSize <= len(runes); i++ {
		out = append(out, string(runes[i:i+ngramSize]))
	}
	return out
}

func hashToIndex(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % StaticDimensions)
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

func (e *StaticEmbedder) ModelName() string {
	return "static"
}

func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
