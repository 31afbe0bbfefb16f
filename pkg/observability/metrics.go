package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics (management API)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Delivery metrics
	DeliveriesTotal        *prometheus.CounterVec
	DeliveryAttemptsTotal  *prometheus.CounterVec
	DeliveryAttemptSeconds *prometheus.HistogramVec
	DeliveriesInFlight     prometheus.Gauge
	RetriesExhaustedTotal  *prometheus.CounterVec

	// URL validation metrics
	ValidationRejectsTotal  *prometheus.CounterVec
	ValidationCacheHits     prometheus.Counter
	ValidationCacheMisses   prometheus.Counter
	DNSRebindRejectionTotal prometheus.Counter

	// Delivery log store metrics
	LogStoreOperationsTotal   *prometheus.CounterVec
	LogStoreOperationDuration *prometheus.HistogramVec
	LogStoreErrorsTotal       *prometheus.CounterVec

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_http_requests_total",
				Help: "Total number of HTTP requests to the management API",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "herald_http_request_duration_seconds",
				Help:    "Management API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_deliveries_total",
				Help: "Total number of webhook deliveries by terminal outcome",
			},
			[]string{"event_type", "outcome"},
		),
		DeliveryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_delivery_attempts_total",
				Help: "Total number of physical delivery attempts",
			},
			[]string{"event_type", "status"},
		),
		DeliveryAttemptSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "herald_delivery_attempt_duration_seconds",
				Help:    "Duration of a single delivery attempt in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"event_type"},
		),
		DeliveriesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "herald_deliveries_in_flight",
				Help: "Number of deliveries currently in flight",
			},
		),
		RetriesExhaustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_retries_exhausted_total",
				Help: "Total number of deliveries that exhausted all retry attempts",
			},
			[]string{"event_type"},
		),

		ValidationRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_url_validation_rejects_total",
				Help: "Total number of webhook URLs rejected by validation",
			},
			[]string{"reason"},
		),
		ValidationCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "herald_url_validation_cache_hits_total",
				Help: "Total number of validation cache hits",
			},
		),
		ValidationCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "herald_url_validation_cache_misses_total",
				Help: "Total number of validation cache misses",
			},
		),
		DNSRebindRejectionTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "herald_dns_rebind_rejections_total",
				Help: "Total number of deliveries aborted because the host resolved to a blocked address at send time",
			},
		),

		LogStoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_logstore_operations_total",
				Help: "Total number of delivery-log store operations",
			},
			[]string{"operation", "backend", "status"},
		),
		LogStoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "herald_logstore_operation_duration_seconds",
				Help:    "Delivery-log store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		LogStoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_logstore_errors_total",
				Help: "Total number of delivery-log store errors",
			},
			[]string{"operation", "backend"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herald_rate_limited_total",
				Help: "Total number of delivery attempts refused by the per-endpoint rate limiter",
			},
			[]string{"event_type"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DeliveriesTotal,
		m.DeliveryAttemptsTotal,
		m.DeliveryAttemptSeconds,
		m.DeliveriesInFlight,
		m.RetriesExhaustedTotal,
		m.ValidationRejectsTotal,
		m.ValidationCacheHits,
		m.ValidationCacheMisses,
		m.DNSRebindRejectionTotal,
		m.LogStoreOperationsTotal,
		m.LogStoreOperationDuration,
		m.LogStoreErrorsTotal,
		m.RateLimitedTotal,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records metrics for a management API request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAttempt records metrics for a single delivery attempt
func (m *Metrics) ObserveAttempt(eventType, status string, duration time.Duration) {
	m.DeliveryAttemptsTotal.WithLabelValues(eventType, status).Inc()
	m.DeliveryAttemptSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

// ObserveLogStoreOp records metrics for a delivery-log store operation
func (m *Metrics) ObserveLogStoreOp(operation, backend string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		m.LogStoreErrorsTotal.WithLabelValues(operation, backend).Inc()
	}
	m.LogStoreOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.LogStoreOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}
