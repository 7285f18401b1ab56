package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	gradingsTotal           *prometheus.CounterVec
	gradingDurationSeconds  prometheus.Histogram
	parseLowConfidenceTotal prometheus.Counter
	notificationsPublished  *prometheus.CounterVec
	sseClientsActive        prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumark_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edumark_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumark_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		gradingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumark_gradings_total",
			Help: "Grading pipeline executions by outcome.",
		}, []string{"outcome"})

		gradingDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edumark_grading_duration_seconds",
			Help:    "Wall clock duration of evaluator grading calls.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		})

		parseLowConfidenceTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumark_report_parse_low_confidence_total",
			Help: "Evaluator reports that yielded no usable numeric signal.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumark_notifications_published_total",
			Help: "Notifications published by kind.",
		}, []string{"kind"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edumark_sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			gradingsTotal,
			gradingDurationSeconds,
			parseLowConfidenceTotal,
			notificationsPublished,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// GradingsTotal exposes the grading outcome counter.
func GradingsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingsTotal
}

// GradingDuration exposes the evaluator call duration histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDurationSeconds
}

// ParseLowConfidenceTotal exposes the low-confidence parse counter.
func ParseLowConfidenceTotal() prometheus.Counter {
	RegisterMetrics()
	return parseLowConfidenceTotal
}

// NotificationsPublishedTotal exposes the notification publish counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive exposes the connected stream client gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
