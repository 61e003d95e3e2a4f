package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// DefaultNamespace prefixes every exported metric.
const DefaultNamespace = "amanrag"

// PrometheusRecorder exports finished requests as Prometheus metrics. It
// implements search.Recorder.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	topConfidence   prometheus.Histogram
	candidates      prometheus.Histogram
	sourceTotal     *prometheus.CounterVec
	sourceDuration  *prometheus.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them with
// reg. An empty namespace uses DefaultNamespace.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	r := &PrometheusRecorder{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "requests_total",
				Help:      "Retrieval requests by route, category and failure reason.",
			},
			[]string{"route", "category", "reason"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "duration_seconds",
				Help:      "End-to-end retrieval duration in seconds.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
		topConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "top_confidence",
				Help:      "Combined score of the top candidate.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "candidates",
				Help:      "Candidates returned per request.",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
			},
		),
		sourceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "calls_total",
				Help:      "Per-request source outcomes.",
			},
			[]string{"source", "state"},
		),
		sourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "duration_seconds",
				Help:      "Time spent in each source per request.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
			},
			[]string{"source"},
		),
	}

	for _, c := range []prometheus.Collector{
		r.requestsTotal, r.requestDuration, r.topConfidence,
		r.candidates, r.sourceTotal, r.sourceDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RecordRetrieval implements search.Recorder.
func (r *PrometheusRecorder) RecordRetrieval(res *search.RetrievalResult) {
	if res == nil {
		return
	}

	category := search.CategoryGeneral
	if res.Profile != nil {
		category = res.Profile.Category
	}
	route := string(res.Route)

	r.requestsTotal.WithLabelValues(route, category, string(res.Reason)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(res.Duration.Seconds())
	r.candidates.Observe(float64(len(res.Candidates)))
	if res.Reason == search.ReasonNone {
		r.topConfidence.Observe(res.TopConfidence)
	}

	for _, rep := range res.Sources {
		r.sourceTotal.WithLabelValues(string(rep.Source), string(rep.State)).Inc()
		if rep.State == search.SourceOK || rep.State == search.SourceFailed || rep.State == search.SourceTimedOut {
			r.sourceDuration.WithLabelValues(string(rep.Source)).Observe(rep.Latency.Seconds())
		}
	}
}

var _ search.Recorder = (*PrometheusRecorder)(nil)

// MultiRecorder fans a result out to several recorders in order.
type MultiRecorder []search.Recorder

// RecordRetrieval implements search.Recorder.
func (m MultiRecorder) RecordRetrieval(res *search.RetrievalResult) {
	for _, r := range m {
		if r != nil {
			r.RecordRetrieval(res)
		}
	}
}

var _ search.Recorder = MultiRecorder(nil)
