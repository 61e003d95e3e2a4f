package searcher

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// Public names for the retrieval types.
type (
	Config  = search.Config
	Result  = search.RetrievalResult
	Handoff = search.Handoff
	Chunk   = store.Chunk
)

// ErrNoChunks is returned by New for an empty chunk slice.
var ErrNoChunks = errors.New("at least one chunk is required")

// Searcher answers queries over one loaded corpus.
type Searcher struct {
	index    *store.Index
	embedder embed.Embedder
	// ownsEmbedder is set when the embedder was built from WithEmbedderConfig.
	ownsEmbedder bool
	orch         *search.Orchestrator
}

type options struct {
	config      search.Config
	bm25        store.BM25Config
	embedder    embed.Embedder
	embedderCfg *embed.Config
	searchOpts  []search.Option
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*options)

// WithConfig replaces search.DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithBM25Config sets the lexical index analyzer settings. Its stop words
// also decide which query terms count toward lexical coverage.
func WithBM25Config(cfg store.BM25Config) Option {
	return func(o *options) {
		o.bm25 = cfg
	}
}

// WithEmbedder uses e for query embeddings. The caller keeps ownership.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// WithEmbedderConfig builds the query embedder only when the corpus holds
// vectors. The Searcher closes it.
func WithEmbedderConfig(cfg embed.Config) Option {
	return func(o *options) {
		o.embedderCfg = &cfg
	}
}

// WithRecorder observes every finished retrieval.
func WithRecorder(r search.Recorder) Option {
	return func(o *options) {
		o.searchOpts = append(o.searchOpts, search.WithRecorder(r))
	}
}

// WithLogger sets the logger for the searcher and its orchestrator.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
		o.searchOpts = append(o.searchOpts, search.WithLogger(l))
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		config: search.DefaultConfig(),
		bm25:   store.DefaultBM25Config(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open loads the SQLite corpus at path. A missing file is reported as
// ERR_201_CORPUS_NOT_FOUND.
func Open(ctx context.Context, path string, opts ...Option) (*Searcher, error) {
	corpus, err := store.LoadCorpus(ctx, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, amerrors.New(amerrors.ErrCodeCorpusNotFound, "corpus not found: "+path, err).
				WithSuggestion("Run 'amanrag import <chunks.jsonl>' first, or set corpus.path")
		}
		return nil, amerrors.CorpusError("failed to load corpus "+path, err)
	}
	return newSearcher(ctx, corpus, buildOptions(opts))
}

// New builds a Searcher over chunks held in memory.
func New(ctx context.Context, chunks []*Chunk, opts ...Option) (*Searcher, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	corpus, err := store.NewCorpus(chunks)
	if err != nil {
		return nil, amerrors.ValidationError("invalid corpus", err)
	}
	return newSearcher(ctx, corpus, buildOptions(opts))
}

func newSearcher(ctx context.Context, corpus *store.Corpus, o *options) (*Searcher, error) {
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	idx, err := store.BuildIndex(ctx, corpus, o.bm25)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeIndexFailed, "failed to index corpus", err)
	}

	s := &Searcher{index: idx}
	s.embedder, s.ownsEmbedder = queryEmbedder(ctx, o, corpus.Dimensions())

	s.orch, err = search.NewFromIndex(o.config, idx, s.embedder, o.bm25.StopWords, o.searchOpts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// queryEmbedder picks the embedder for the vector source, or nil when it
// cannot run against this corpus.
func queryEmbedder(ctx context.Context, o *options, corpusDims int) (embed.Embedder, bool) {
	if corpusDims == 0 {
		if o.embedder != nil || o.embedderCfg != nil {
			o.logger.Info("vector_source_disabled", slog.String("reason", "corpus has no embeddings"))
		}
		return nil, false
	}

	emb, owned := o.embedder, false
	if emb == nil && o.embedderCfg != nil {
		var err error
		if emb, err = embed.NewEmbedder(ctx, *o.embedderCfg); err != nil {
			o.logger.Warn("vector_source_disabled", slog.String("error", err.Error()))
			return nil, false
		}
		owned = true
	}
	if emb == nil {
		return nil, false
	}

	if emb.Dimensions() != corpusDims {
		o.logger.Warn("vector_source_disabled",
			slog.String("reason", "dimension mismatch"),
			slog.String("model", emb.ModelName()),
			slog.Int("embedder_dims", emb.Dimensions()),
			slog.Int("corpus_dims", corpusDims))
		if owned {
			_ = emb.Close()
		}
		return nil, false
	}
	return emb, owned
}

// Retrieve runs one query through the pipeline. It never fails; problems
// are reported in the result's Route, Reason and Sources.
func (s *Searcher) Retrieve(ctx context.Context, query string) *Result {
	return s.orch.Retrieve(ctx, query)
}

// Handoff retrieves and converts the result for an answer generator.
func (s *Searcher) Handoff(ctx context.Context, query string) *Handoff {
	return search.NewHandoff(s.Retrieve(ctx, query))
}

// VectorEnabled reports whether the vector source takes part in retrieval.
func (s *Searcher) VectorEnabled() bool {
	return s.embedder != nil
}

// Len is the number of chunks in the corpus.
func (s *Searcher) Len() int {
	return s.index.Corpus.Len()
}

// Config returns the retrieval configuration in use.
func (s *Searcher) Config() Config {
	return s.orch.Config()
}

// Close releases the in-memory indexes and an owned embedder.
func (s *Searcher) Close() error {
	var errs []error
	if s.ownsEmbedder && s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	return errors.Join(errs...)
}
