package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// Corpus is the read-only chunk set the orchestrator serves from.
type Corpus interface {
	ChunkLookup
	Len() int
}

// Recorder observes finished requests. Implementations must be safe for
// concurrent use and must not modify the result.
type Recorder interface {
	RecordRetrieval(res *RetrievalResult)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRequestIDs replaces the uuid request id generator.
func WithRequestIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newID = next
		}
	}
}

// Orchestrator drives one request through analyze, fan-out, fuse and gate.
// It holds no per-request state; only the circuit breakers and the
// analyzer cache are shared between requests.
type Orchestrator struct {
	cfg      Config
	corpus   Corpus
	analyzer *QueryAnalyzer
	scorers  map[Source]Scorer
	breakers map[Source]*amerrors.CircuitBreaker
	fusion   *ScoreFusion
	gate     *ConfidenceGate

	recorder Recorder
	logger   *slog.Logger
	newID    func() string
}

// NewOrchestrator validates cfg and wires the scorers. A source without a
// scorer is reported as skipped and its weight treated like a failure.
func NewOrchestrator(cfg Config, corpus Corpus, scorers []Scorer, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if corpus == nil {
		return nil, amerrors.ConfigError("corpus is required", nil)
	}

	o := &Orchestrator{
		cfg:      cfg,
		corpus:   corpus,
		analyzer: NewQueryAnalyzer(cfg),
		scorers:  make(map[Source]Scorer, len(scorers)),
		breakers: make(map[Source]*amerrors.CircuitBreaker),
		fusion: NewScoreFusion(FusionPolicy{
			BoostAmount:      cfg.BoostAmount,
			AvoidAmount:      cfg.AvoidAmount,
			ContentTypeBonus: cfg.ContentTypeBonus,
		}, corpus),
		gate:   NewConfidenceGate(cfg.ConfidenceThreshold),
		logger: slog.Default(),
		newID:  uuid.NewString,
	}

	for _, s := range scorers {
		if s == nil {
			continue
		}
		src := s.Source()
		if _, dup := o.scorers[src]; dup {
			return nil, amerrors.ConfigError(fmt.Sprintf("duplicate scorer for source %q", src), nil)
		}
		o.scorers[src] = s
		if cfg.BreakerMaxFailures > 0 {
			o.breakers[src] = amerrors.NewCircuitBreaker(string(src),
				amerrors.WithMaxFailures(cfg.BreakerMaxFailures),
				amerrors.WithResetTimeout(cfg.BreakerResetTimeout))
		}
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the configuration the orchestrator was built with.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Analyze exposes the query analyzer.
func (o *Orchestrator) Analyze(query string) *QueryProfile {
	return o.analyzer.Analyze(query)
}

// BreakerState reports the circuit state of a source, closed when the
// source has no breaker.
func (o *Orchestrator) BreakerState(s Source) amerrors.State {
	if cb, ok := o.breakers[s]; ok {
		return cb.State()
	}
	return amerrors.StateClosed
}

// Retrieve runs one request. It never returns an error: empty input, an
// empty corpus, cancellation and the failure of every source all end in
// FALLBACK with a reason.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) *RetrievalResult {
	start := time.Now()
	res := &RetrievalResult{
		RequestID:  o.newID(),
		Query:      query,
		Candidates: []*Candidate{},
		Route:      RouteFallback,
	}

	res.Stages = append(res.Stages, StageAnalyzing)
	profile := o.analyzer.Analyze(query)
	res.Profile = profile

	switch {
	case ctx.Err() != nil:
		return o.finish(res, start, ReasonCanceled)
	case profile.Query == "":
		return o.finish(res, start, ReasonEmptyQuery)
	case o.corpus.Len() == 0:
		return o.finish(res, start, ReasonEmptyCorpus)
	}

	res.Stages = append(res.Stages, StageSearching)
	outcomes := o.fanOut(ctx, profile)
	if ctx.Err() != nil {
		for src, out := range outcomes {
			if cb, ok := o.breakers[src]; ok && out.called {
				cb.Release()
			}
		}
		res.Sources = o.reports(outcomes, ScoringWeights{})
		return o.finish(res, start, ReasonCanceled)
	}

	active := make(map[Source]bool, len(AllSources))
	mergedScores := make(map[Source]merged, len(AllSources))
	var failed []Source
	for _, src := range AllSources {
		out := outcomes[src]
		o.recordBreaker(src, out)
		if out.state != SourceOK {
			if out.state != SourceSkipped {
				failed = append(failed, src)
			}
			continue
		}
		active[src] = true
		mergedScores[src] = mergeMax(out.hits)
	}

	weights := o.cfg.Weights.Effective(active, o.cfg.Redistribution)
	res.Sources = o.reports(outcomes, weights)

	if len(active) == 0 {
		o.logger.Warn("all_sources_failed",
			slog.String("request_id", res.RequestID),
			slog.Int("variants", len(profile.Variants())))
		return o.finish(res, start, ReasonAllSourcesFailed)
	}
	if len(failed) > 0 {
		o.logger.Info("weights_redistributed",
			slog.String("request_id", res.RequestID),
			slog.String("mode", string(o.cfg.Redistribution)),
			slog.Any("failed", failed),
			slog.Float64("lexical", weights.Lexical),
			slog.Float64("vector", weights.Vector),
			slog.Float64("fuzzy", weights.Fuzzy))
	}

	res.Stages = append(res.Stages, StageFusing)
	res.Candidates = o.fusion.fuse(mergedScores, weights, profile, profile.TargetK)

	res.Stages = append(res.Stages, StageGating)
	res.Route, res.TopConfidence = o.gate.Decide(res.Candidates)

	return o.finish(res, start, ReasonNone)
}

func (o *Orchestrator) finish(res *RetrievalResult, start time.Time, reason FailureReason) *RetrievalResult {
	res.Reason = reason
	if reason != ReasonNone {
		res.Route = RouteFallback
		res.TopConfidence = 0
		res.Candidates = []*Candidate{}
	}
	res.Stages = append(res.Stages, StageDone)
	res.Duration = time.Since(start)

	attrs := []any{
		slog.String("request_id", res.RequestID),
		slog.String("category", res.Profile.Category),
		slog.String("route", string(res.Route)),
		slog.Int("candidates", len(res.Candidates)),
		slog.Float64("top_confidence", res.TopConfidence),
		slog.Duration("duration", res.Duration),
	}
	if reason != ReasonNone {
		attrs = append(attrs, slog.String("reason", string(reason)))
	}
	o.logger.Debug("retrieval_complete", attrs...)

	if o.recorder != nil {
		o.recorder.RecordRetrieval(res)
	}
	return res
}

// sourceOutcome collects one source's calls for one request.
type sourceOutcome struct {
	state   SourceState
	hits    []variantHits
	err     error
	latency time.Duration
	called  bool
}

// fanOut issues one call per source per variant, all concurrently, and
// waits for each to finish or hit its own deadline.
func (o *Orchestrator) fanOut(ctx context.Context, profile *QueryProfile) map[Source]*sourceOutcome {
	variants := profile.Variants()
	pool := o.cfg.CandidatePool
	if profile.TargetK > pool {
		pool = profile.TargetK
	}

	outcomes := make(map[Source]*sourceOutcome, len(AllSources))
	var mu sync.Mutex
	var g errgroup.Group

	for _, src := range AllSources {
		out := &sourceOutcome{state: SourceOK, hits: make([]variantHits, len(variants))}
		outcomes[src] = out

		scorer, ok := o.scorers[src]
		if !ok {
			out.state = SourceSkipped
			continue
		}
		if cb, ok := o.breakers[src]; ok && !cb.Allow() {
			out.state = SourceCircuitOpen
			out.err = amerrors.SourceUnavailable(string(src), amerrors.ErrCircuitOpen)
			continue
		}
		out.called = true

		for i, v := range variants {
			g.Go(func() error {
				callStart := time.Now()
				scores, err := o.call(ctx, scorer, v, pool)
				elapsed := time.Since(callStart)

				mu.Lock()
				defer mu.Unlock()
				if elapsed > out.latency {
					out.latency = elapsed
				}
				if err != nil {
					// Keep the first failure; a timeout outranks a plain error.
					if out.err == nil || out.state == SourceFailed && isTimeout(err) {
						out.err = err
						out.state = SourceFailed
						if isTimeout(err) {
							out.state = SourceTimedOut
						}
					}
					return nil
				}
				out.hits[i] = variantHits{variant: v, scores: scores}
				return nil
			})
		}
	}

	// Calls report failures through their outcome, never through Wait.
	_ = g.Wait()

	for src, out := range outcomes {
		if out.err != nil && out.state != SourceCircuitOpen && ctx.Err() == nil {
			o.logger.Warn("source_failed",
				append([]any{slog.String("source", string(src)), slog.String("state", string(out.state))},
					amerrors.LogAttrs(out.err)...)...)
		}
	}
	return outcomes
}

type callResult struct {
	scores ScoreMap
	err    error
}

// call runs one scorer call under its own deadline. It returns at the
// deadline even if the scorer ignores ctx; a late result is discarded.
func (o *Orchestrator) call(ctx context.Context, scorer Scorer, variant string, k int) (ScoreMap, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		scores, err := scorer.Search(cctx, variant, k)
		done <- callResult{scores: scores, err: err}
	}()

	var r callResult
	select {
	case r = <-done:
	case <-cctx.Done():
		r.err = cctx.Err()
	}

	src := string(scorer.Source())
	if r.err == nil && cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// Finished, but only after its deadline.
		r.err = cctx.Err()
	}
	switch {
	case r.err == nil:
		if r.scores == nil {
			r.scores = ScoreMap{}
		}
		return r.scores, nil
	case errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, amerrors.SourceTimeout(src, r.err)
	default:
		return nil, amerrors.SourceUnavailable(src, r.err)
	}
}

func isTimeout(err error) bool {
	return amerrors.GetCode(err) == amerrors.ErrCodeSourceTimeout
}

// recordBreaker feeds one record per source per request into its breaker.
func (o *Orchestrator) recordBreaker(src Source, out *sourceOutcome) {
	cb, ok := o.breakers[src]
	if !ok || !out.called {
		return
	}
	if out.err != nil {
		cb.RecordFailure()
		return
	}
	cb.RecordSuccess()
}

func (o *Orchestrator) reports(outcomes map[Source]*sourceOutcome, weights ScoringWeights) []SourceReport {
	reports := make([]SourceReport, 0, len(AllSources))
	for _, src := range AllSources {
		out := outcomes[src]
		rep := SourceReport{
			Source:  src,
			State:   out.state,
			Weight:  weights.Of(src),
			Latency: out.latency,
		}
		if out.err != nil {
			rep.Error = out.err.Error()
		}
		if out.state == SourceOK {
			seen := make(map[string]struct{})
			for _, h := range out.hits {
				for id := range h.scores {
					seen[id] = struct{}{}
				}
			}
			rep.Hits = len(seen)
		}
		reports = append(reports, rep)
	}
	return reports
}
