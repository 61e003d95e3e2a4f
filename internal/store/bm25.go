package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	// TextTokenizerName is the registered bleve name of the corpus tokenizer.
	TextTokenizerName = "amanrag_text_tokenizer"

	// TextStopFilterName is the registered bleve name of the TR/EN stop filter.
	TextStopFilterName = "amanrag_text_stop"

	// TextAnalyzerName is the analyzer applied to chunk text and queries.
	TextAnalyzerName = "amanrag_text"

	contentField = "content"
)

func init() {
	_ = registry.RegisterTokenizer(TextTokenizerName, textTokenizerConstructor)
	_ = registry.RegisterTokenFilter(TextStopFilterName, textStopFilterConstructor)
}

// BM25Config configures the lexical index.
type BM25Config struct {
	// StopWords replaces DefaultStopWords when non-nil.
	StopWords []string
}

// DefaultBM25Config uses the built-in TR/EN stop words.
func DefaultBM25Config() BM25Config {
	return BM25Config{StopWords: DefaultStopWords}
}

// BleveBM25Index is an in-memory bleve index scored by BM25 term
// relevance. It is filled once at startup and only searched afterwards.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveBM25Index creates an empty in-memory index.
func NewBleveBM25Index(cfg BM25Config) (*BleveBM25Index, error) {
	m, err := newIndexMapping(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &BleveBM25Index{index: idx}, nil
}

func newIndexMapping(cfg BM25Config) (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()

	stopWords := cfg.StopWords
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	words := make([]interface{}, len(stopWords))
	for i, w := range stopWords {
		words[i] = w
	}
	if err := m.AddCustomTokenFilter(TextStopFilterName+"_cfg", map[string]interface{}{
		"type":  TextStopFilterName,
		"words": words,
	}); err != nil {
		return nil, fmt.Errorf("failed to add stop filter: %w", err)
	}

	if err := m.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     TextTokenizerName,
		"token_filters": []string{TextStopFilterName + "_cfg"},
	}); err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	m.DefaultAnalyzer = TextAnalyzerName
	return m, nil
}

// Index adds documents in a single batch.
func (b *BleveBM25Index) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.ID, bleveDocument{Content: doc.Content}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search returns up to limit documents matching any query term, best first.
func (b *BleveBM25Index) Search(ctx context.Context, query string, limit int) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*BM25Result{}, nil
	}

	mq := bleve.NewMatchQuery(query)
	mq.SetField(contentField)

	req := bleve.NewSearchRequest(mq)
	req.Size = limit
	req.IncludeLocations = true

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*BM25Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &BM25Result{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: matchedTerms(hit),
		})
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (b *BleveBM25Index) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func matchedTerms(hit *search.DocumentMatch) []string {
	locs := hit.Locations[contentField]
	terms := make([]string, 0, len(locs))
	for term := range locs {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

var _ BM25Index = (*BleveBM25Index)(nil)

func textTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return textTokenizer{}, nil
}

type textTokenizer struct{}

func (textTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := TokenizeSpans(string(input))
	stream := make(analysis.TokenStream, 0, len(spans))
	for i, s := range spans {
		stream = append(stream, &analysis.Token{
			Term:     []byte(s.Term),
			Start:    s.Start,
			End:      s.End,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}

func textStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	var words []string
	if raw, ok := config["words"].([]interface{}); ok {
		for _, w := range raw {
			if s, ok := w.(string); ok {
				words = append(words, s)
			}
		}
	} else {
		words = DefaultStopWords
	}
	return stopFilter{stop: BuildStopWordMap(words)}, nil
}

type stopFilter struct {
	stop map[string]struct{}
}

func (f stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, isStop := f.stop[string(tok.Term)]; !isStop {
			out = append(out, tok)
		}
	}
	return out
}
