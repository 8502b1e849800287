package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
)

// Metrics contains the Prometheus metrics for one digest run. The job is a
// short-lived batch process with no scrape endpoint, so metrics live on a
// private registry and are pushed to a Pushgateway when one is configured,
// and summarized to the log either way.
type Metrics struct {
	registry *prometheus.Registry

	// RunsStarted counts digest runs initiated.
	RunsStarted prometheus.Counter

	// RunsFailed counts digest runs that ended in failure.
	RunsFailed prometheus.Counter

	// RunDuration observes end-to-end run duration in seconds.
	RunDuration prometheus.Histogram

	// SourceQueries counts source API queries, labeled by source.
	SourceQueries *prometheus.CounterVec

	// SourceFailures counts source queries that failed after retries, labeled by source.
	SourceFailures *prometheus.CounterVec

	// CandidatesKept counts candidates that survived filtering, labeled by source.
	CandidatesKept *prometheus.CounterVec

	// EnrichmentMisses counts attention lookups that found no data.
	EnrichmentMisses prometheus.Counter

	// DigestEntries counts entries rendered into the delivered payload.
	DigestEntries prometheus.Counter

	// DeliveriesFailed counts webhook deliveries rejected by the endpoint.
	DeliveriesFailed prometheus.Counter
}

// NewMetrics creates a Metrics instance on its own registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RunsStarted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of digest runs started",
		}),
		RunsFailed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of digest runs that failed",
		}),
		RunDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end duration of digest runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		SourceQueries: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_queries_total",
			Help:      "Total number of source API queries issued",
		}, []string{"source"}),
		SourceFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Total number of source queries that failed after retries",
		}, []string{"source"}),
		CandidatesKept: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_kept_total",
			Help:      "Total number of candidates surviving filters",
		}, []string{"source"}),
		EnrichmentMisses: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_misses_total",
			Help:      "Total number of attention lookups that returned no data",
		}),
		DigestEntries: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_entries_total",
			Help:      "Total number of entries rendered into delivered digests",
		}),
		DeliveriesFailed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_failed_total",
			Help:      "Total number of webhook deliveries rejected",
		}),
	}
}

// Push sends the run's metrics to a Pushgateway. The job name groups runs of
// this binary on the gateway.
func (m *Metrics) Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.registry).Push()
}

// LogSummary writes the gathered metric values to the logger at info level.
func (m *Metrics) LogSummary(logger zerolog.Logger) {
	families, err := m.registry.Gather()
	if err != nil {
		logger.Warn().Err(err).Msg("gathering run metrics failed")
		return
	}

	event := logger.Info()
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name = name + "_" + label.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				event = event.Float64(name, metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				event = event.Float64(name+"_sum", metric.GetHistogram().GetSampleSum())
			}
		}
	}
	event.Msg("run metrics")
}
