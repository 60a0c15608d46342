package metrics

import (
	"context"
	"net/http"

	"github.com/phrazzld/fractal-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fractal"

// Recorder keeps its metrics in its own registry instead of
// prometheus.DefaultRegistry, so tests can create as many as they like.
type Recorder struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	results     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
}

var _ events.EventHandler = (*Recorder)(nil)

// NewRecorder creates a Recorder. Go runtime and process collectors are
// registered alongside the generation metrics.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of generation submissions, partitioned by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of finished generation tasks, partitioned by kind and final status.",
			},
			[]string{"kind", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Time from submission to the final status of a generation task.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind", "status"},
		),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "generations_in_flight",
				Help:      "Number of accepted generation tasks that have not finished yet.",
			},
			[]string{"kind"},
		),
	}
}

// HandleEvent updates the metrics for one generation event.
func (r *Recorder) HandleEvent(ctx context.Context, event *events.GenerationEvent) error {
	kind := event.Kind

	switch event.Type {
	case events.TypeSubmitted:
		r.submissions.WithLabelValues(kind, "accepted").Inc()
		r.inFlight.WithLabelValues(kind).Inc()
	case events.TypeDuplicate:
		r.submissions.WithLabelValues(kind, "duplicate").Inc()
	case events.TypeRecovered:
		r.submissions.WithLabelValues(kind, "recovered").Inc()
		r.inFlight.WithLabelValues(kind).Inc()
	case events.TypeInterrupted:
		r.results.WithLabelValues(kind, "interrupted").Inc()
		r.inFlight.WithLabelValues(kind).Dec()
	case events.TypeCompleted, events.TypeCancelled, events.TypeFailed:
		status := terminalStatus(event.Type)
		r.results.WithLabelValues(kind, status).Inc()
		r.duration.WithLabelValues(kind, status).Observe(event.Duration.Seconds())
		r.inFlight.WithLabelValues(kind).Dec()
	}
	return nil
}

func terminalStatus(eventType string) string {
	switch eventType {
	case events.TypeCompleted:
		return "completed"
	case events.TypeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
