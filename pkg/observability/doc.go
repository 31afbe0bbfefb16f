// Package observability provides structured logging, Prometheus metrics, health
// checks, and OpenTelemetry tracing for the webhook delivery service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("guild_id", guildID).Info("delivery scheduled")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.DeliveryAttemptsTotal.WithLabelValues("moderation.banned", "success").Inc()
//
// # Health Checks
//
// HealthChecker exposes Liveness and Readiness handlers and pings the
// configured delivery-log backends (PostgreSQL, Redis).
//
// # Related Packages
//
//   - pkg/webhooks: delivery engine instrumented with these metrics
//   - pkg/urlcheck: URL validation instrumented with these metrics
package observability
