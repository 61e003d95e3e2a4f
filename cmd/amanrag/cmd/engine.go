package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
	"github.com/Aman-CERP/amanrag/pkg/searcher"
)

// engine is a searcher plus the telemetry collected while it runs.
type engine struct {
	cfg      *config.Config
	searcher *searcher.Searcher
	metrics  *telemetry.RetrievalMetrics
	registry *prometheus.Registry
}

// openEngine loads the corpus and wires the searcher with in-memory and
// Prometheus recorders.
func openEngine(ctx context.Context, cfg *config.Config, sc search.Config) (*engine, error) {
	ec, err := cfg.EmbedderConfig()
	if err != nil {
		return nil, err
	}

	e := &engine{
		cfg:      cfg,
		metrics:  telemetry.NewRetrievalMetrics(telemetry.DefaultConfig()),
		registry: prometheus.NewRegistry(),
	}
	prom, err := telemetry.NewPrometheusRecorder(cfg.Metrics.Namespace, e.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	e.searcher, err = searcher.Open(ctx, cfg.CorpusPath(),
		searcher.WithConfig(sc),
		searcher.WithBM25Config(cfg.BM25Config()),
		searcher.WithEmbedderConfig(ec),
		searcher.WithRecorder(telemetry.MultiRecorder{e.metrics, prom}),
		searcher.WithLogger(slog.Default()))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// persistTelemetry folds this run's statistics into metrics.store.
func (e *engine) persistTelemetry(ctx context.Context) {
	path := e.cfg.MetricsStorePath()
	if path == "" {
		return
	}
	st, err := telemetry.OpenMetricsStore(path)
	if err != nil {
		slog.Warn("telemetry_store_unavailable", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = st.Close() }()

	if err := st.Save(ctx, time.Now().Format(time.DateOnly), e.metrics.Drain()); err != nil {
		slog.Warn("telemetry_save_failed", slog.String("error", err.Error()))
	}
}

func (e *engine) Close() {
	_ = e.searcher.Close()
}
