package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for reachgate
type Metrics struct {
	// Segment count refresh
	SegmentCountRequestsTotal   *prometheus.CounterVec
	SegmentCountDurationSeconds prometheus.Histogram
	SegmentCountStaleTotal      prometheus.Counter
	SegmentCountSupersededTotal prometheus.Counter

	// Cost admission
	AdmissionDecisionsTotal *prometheus.CounterVec

	// Segment persistence
	SegmentSubmissionsTotal *prometheus.CounterVec

	// Store gauges
	ContactsTotal prometheus.Gauge
	SegmentsTotal prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SegmentCountRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachgate_segment_count_requests_total",
				Help: "Total number of segment count refreshes by result",
			},
			[]string{"result"},
		),
		SegmentCountDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reachgate_segment_count_duration_seconds",
				Help:    "Duration of remote segment count requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		SegmentCountStaleTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reachgate_segment_count_stale_total",
				Help: "Total number of count responses discarded because a newer edit was issued",
			},
		),
		SegmentCountSupersededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reachgate_segment_count_superseded_total",
				Help: "Total number of pending count refreshes cancelled by a newer edit",
			},
		),

		AdmissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachgate_admission_decisions_total",
				Help: "Total number of cost admission decisions",
			},
			[]string{"kind", "result"},
		),

		SegmentSubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachgate_segment_submissions_total",
				Help: "Total number of segment form submissions",
			},
			[]string{"result"},
		),

		ContactsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reachgate_contacts",
				Help: "Number of contacts in the local store",
			},
		),
		SegmentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reachgate_segments",
				Help: "Number of segments in the local store",
			},
		),

		// API metrics
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachgate_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reachgate_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachgate_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		// System metrics
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reachgate_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reachgate_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reachgate_storage_used_bytes",
				Help: "BoltDB file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.SegmentCountRequestsTotal,
		m.SegmentCountDurationSeconds,
		m.SegmentCountStaleTotal,
		m.SegmentCountSupersededTotal,
		m.AdmissionDecisionsTotal,
		m.SegmentSubmissionsTotal,
		m.ContactsTotal,
		m.SegmentsTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncSegmentCount records the outcome of a count refresh: ok, error or empty
func IncSegmentCount(result string) {
	m := Global()
	if m != nil {
		m.SegmentCountRequestsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveSegmentCountDuration records the duration of a remote count call
func ObserveSegmentCountDuration(seconds float64) {
	m := Global()
	if m != nil {
		m.SegmentCountDurationSeconds.Observe(seconds)
	}
}

// IncSegmentCountStale increments the discarded response counter
func IncSegmentCountStale() {
	m := Global()
	if m != nil {
		m.SegmentCountStaleTotal.Inc()
	}
}

// IncSegmentCountSuperseded increments the cancelled pending refresh counter
func IncSegmentCountSuperseded() {
	m := Global()
	if m != nil {
		m.SegmentCountSupersededTotal.Inc()
	}
}

// IncAdmissionDecision records an admission decision.
// kind is wallet, budget_cap or reboost.
func IncAdmissionDecision(kind string, admitted bool) {
	m := Global()
	if m == nil {
		return
	}
	result := "denied"
	if admitted {
		result = "admitted"
	}
	m.AdmissionDecisionsTotal.WithLabelValues(kind, result).Inc()
}

// IncSegmentSubmission records a segment form submission result
func IncSegmentSubmission(result string) {
	m := Global()
	if m != nil {
		m.SegmentSubmissionsTotal.WithLabelValues(result).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
