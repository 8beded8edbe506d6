// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderRequestLatency *prometheus.HistogramVec
	ProviderRetries        *prometheus.CounterVec
	ProviderFailures       *prometheus.CounterVec

	// Retrieval metrics
	PagesFetched   *prometheus.CounterVec
	RecordsFetched *prometheus.CounterVec

	// Classification metrics
	EventsClassified *prometheus.CounterVec
	RecordsDropped   prometheus.Counter

	// Timeline metrics
	TimelinesBuilt   *prometheus.CounterVec
	TimelineDuration *prometheus.HistogramVec
	NameResolutions  *prometheus.CounterVec
	ArchiveWrites    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "artist_timeline"
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_latency_seconds",
			Help:      "Upstream provider request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ProviderRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Total number of upstream request retries by reason",
		}, []string{"endpoint", "reason"}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Total number of upstream requests that failed permanently",
		}, []string{"endpoint"}),

		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched by retrieval mode",
		}, []string{"mode"}),
		RecordsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "records_fetched_total",
			Help:      "Total number of raw records fetched by retrieval mode",
		}, []string{"mode"}),

		EventsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "events_total",
			Help:      "Total number of canonical events by kind",
		}, []string{"kind"}),
		RecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "records_dropped_total",
			Help:      "Total number of raw records dropped for lack of a timestamp",
		}),

		TimelinesBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timeline",
			Name:      "built_total",
			Help:      "Total number of timeline builds by mode and status",
		}, []string{"mode", "status"}),
		TimelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "timeline",
			Name:      "build_duration_seconds",
			Help:      "Timeline build duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		NameResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "resolutions_total",
			Help:      "Total number of name resolutions by status",
		}, []string{"status"}),
		ArchiveWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "writes_total",
			Help:      "Total number of timeline archive writes by backend and status",
		}, []string{"backend", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordProviderRequest records upstream request latency; failed marks a
// permanent failure.
func RecordProviderRequest(endpoint string, seconds float64, failed bool) {
	DefaultMetrics.ProviderRequestLatency.WithLabelValues(endpoint).Observe(seconds)
	if failed {
		DefaultMetrics.ProviderFailures.WithLabelValues(endpoint).Inc()
	}
}

// RecordProviderRetry increments the retry counter.
func RecordProviderRetry(endpoint, reason string) {
	DefaultMetrics.ProviderRetries.WithLabelValues(endpoint, reason).Inc()
}

// RecordPage records one fetched page and its row count.
func RecordPage(mode string, rows int) {
	DefaultMetrics.PagesFetched.WithLabelValues(mode).Inc()
	DefaultMetrics.RecordsFetched.WithLabelValues(mode).Add(float64(rows))
}

// RecordClassified records one canonical event of the given kind.
func RecordClassified(kind string) {
	DefaultMetrics.EventsClassified.WithLabelValues(kind).Inc()
}

// RecordDropped records raw records dropped during normalization.
func RecordDropped(n int) {
	if n > 0 {
		DefaultMetrics.RecordsDropped.Add(float64(n))
	}
}

// RecordTimeline records one timeline build.
func RecordTimeline(mode, status string, durationSeconds float64) {
	DefaultMetrics.TimelinesBuilt.WithLabelValues(mode, status).Inc()
	DefaultMetrics.TimelineDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordResolution records a name resolution outcome.
func RecordResolution(status string) {
	DefaultMetrics.NameResolutions.WithLabelValues(status).Inc()
}

// RecordArchiveWrite records a timeline archive write.
func RecordArchiveWrite(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ArchiveWrites.WithLabelValues(backend, status).Inc()
}

// RecordArchiveSkip records a snapshot that was not written because it
// matched the latest archived snapshot for its subject.
func RecordArchiveSkip(backend string) {
	DefaultMetrics.ArchiveWrites.WithLabelValues(backend, "unchanged").Inc()
}
