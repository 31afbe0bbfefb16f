package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/heraldhq/herald/pkg/observability"
	"github.com/heraldhq/herald/pkg/urlcheck"
)

// Delivery outcome labels
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// maxResponseExcerpt bounds how much of a receiver's response body is kept
// in the delivery log.
const maxResponseExcerpt = 1024

// TestResult is the raw outcome of a manual endpoint test
type TestResult struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DelivererConfig configures the delivery engine
type DelivererConfig struct {
	AttemptTimeout time.Duration
	Retry          RetryConfig
	RateLimit      int
	RatePeriod     time.Duration
}

// DefaultDelivererConfig returns the default delivery configuration
func DefaultDelivererConfig() DelivererConfig {
	return DelivererConfig{
		AttemptTimeout: 10 * time.Second,
		Retry:          DefaultRetryConfig(),
		RateLimit:      100,
		RatePeriod:     time.Minute,
	}
}

// Deliverer performs webhook deliveries with bounded retries. It never
// returns an error to the event producer: every failure mode ends in a
// recorded attempt and, eventually, a terminal outcome.
type Deliverer struct {
	client    *http.Client
	validate  func(ctx context.Context, rawURL string) bool
	log       DeliveryLogStore
	policy    *RetryPolicy
	limiter   *RateLimiter
	logger    *observability.Logger
	metrics   *observability.Metrics

	attemptTimeout time.Duration

	// sleep is swappable so retry pacing can be observed without real waits
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewDeliverer creates a delivery engine
func NewDeliverer(validator *urlcheck.Validator, log DeliveryLogStore, logger *observability.Logger, metrics *observability.Metrics, config DelivererConfig) *Deliverer {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 10 * time.Second
	}
	return &Deliverer{
		client: &http.Client{
			Timeout:   config.AttemptTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		validate:       validator.ValidateResolved,
		log:            log,
		policy:         NewRetryPolicy(config.Retry),
		limiter:        NewRateLimiter(config.RateLimit, config.RatePeriod),
		logger:         logger,
		metrics:        metrics,
		attemptTimeout: config.AttemptTimeout,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Deliver sends the payload to one endpoint, retrying transient failures
// with exponential backoff. It reports whether the delivery eventually
// succeeded. Every physical attempt, including attempts refused before any
// bytes left the process, is recorded before the next one is scheduled.
func (d *Deliverer) Deliver(ctx context.Context, guildID string, endpoint Endpoint, payload EventPayload) bool {
	log := d.logger.WithFields(map[string]interface{}{
		"guild_id":    guildID,
		"endpoint_id": endpoint.ID,
		"event_type":  string(payload.Event),
	})

	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("payload serialization failed, dropping delivery")
		return false
	}

	signature := ""
	if endpoint.Secret != "" {
		signature = Sign(body, endpoint.Secret)
	}
	deliveryID := uuid.NewString()

	d.metrics.DeliveriesInFlight.Inc()
	defer d.metrics.DeliveriesInFlight.Dec()

	for attempt := 1; ; attempt++ {
		start := time.Now()
		status, excerpt, attemptErr := d.attempt(ctx, endpoint, payload.Event, body, signature, deliveryID)
		duration := time.Since(start)

		rec := DeliveryAttempt{
			ID:              uuid.NewString(),
			GuildID:         guildID,
			EndpointID:      endpoint.ID,
			EventType:       payload.Event,
			AttemptNumber:   attempt,
			Status:          AttemptStatusSuccess,
			HTTPStatus:      status,
			ResponseExcerpt: excerpt,
			DurationMs:      int(duration.Milliseconds()),
			OccurredAt:      start,
		}
		if attemptErr != nil {
			rec.Status = AttemptStatusFailure
			rec.ErrorMessage = attemptErr.Error()
		}

		if recErr := d.log.Record(ctx, rec); recErr != nil {
			log.WithError(recErr).Warn("failed to record delivery attempt")
		}
		d.metrics.ObserveAttempt(string(payload.Event), rec.Status, duration)

		if attemptErr == nil {
			d.metrics.DeliveriesTotal.WithLabelValues(string(payload.Event), outcomeSuccess).Inc()
			log.WithField("attempt", attempt).Debug("webhook delivered")
			return true
		}

		log.WithError(attemptErr).WithField("attempt", attempt).Debug("delivery attempt failed")

		if !d.policy.ShouldRetry(attempt) {
			d.metrics.RetriesExhaustedTotal.WithLabelValues(string(payload.Event)).Inc()
			d.metrics.DeliveriesTotal.WithLabelValues(string(payload.Event), outcomeFailure).Inc()
			log.WithField("attempts", attempt).Warn("webhook delivery failed, retries exhausted")
			return false
		}

		if !d.sleep(ctx, d.policy.NextRetryDelay(attempt)) {
			d.metrics.DeliveriesTotal.WithLabelValues(string(payload.Event), outcomeFailure).Inc()
			log.WithField("attempts", attempt).Warn("webhook delivery abandoned, context canceled")
			return false
		}
	}
}

// DeliverOnce performs a single synchronous attempt with no retries, used
// for manual endpoint tests. The attempt is recorded like any other.
func (d *Deliverer) DeliverOnce(ctx context.Context, guildID string, endpoint Endpoint, payload EventPayload) TestResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return TestResult{Error: fmt.Sprintf("payload serialization failed: %v", err)}
	}

	signature := ""
	if endpoint.Secret != "" {
		signature = Sign(body, endpoint.Secret)
	}

	start := time.Now()
	status, excerpt, attemptErr := d.attempt(ctx, endpoint, payload.Event, body, signature, uuid.NewString())
	duration := time.Since(start)

	rec := DeliveryAttempt{
		ID:              uuid.NewString(),
		GuildID:         guildID,
		EndpointID:      endpoint.ID,
		EventType:       payload.Event,
		AttemptNumber:   1,
		Status:          AttemptStatusSuccess,
		HTTPStatus:      status,
		ResponseExcerpt: excerpt,
		DurationMs:      int(duration.Milliseconds()),
		OccurredAt:      start,
	}
	result := TestResult{OK: true, Status: status, Text: excerpt}
	if attemptErr != nil {
		rec.Status = AttemptStatusFailure
		rec.ErrorMessage = attemptErr.Error()
		result.OK = false
		result.Error = attemptErr.Error()
	}
	if recErr := d.log.Record(ctx, rec); recErr != nil {
		d.logger.WithError(recErr).WithField("guild_id", guildID).Warn("failed to record delivery attempt")
	}
	d.metrics.ObserveAttempt(string(payload.Event), rec.Status, duration)

	return result
}

// attempt performs one physical delivery attempt. The endpoint URL's host
// is re-resolved and re-classified immediately before the request so that a
// DNS record that changed since registration cannot steer the request at an
// internal address.
func (d *Deliverer) attempt(ctx context.Context, endpoint Endpoint, eventType EventType, body []byte, signature, deliveryID string) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	if !d.validate(attemptCtx, endpoint.URL) {
		return 0, "", fmt.Errorf("endpoint url rejected at send time")
	}

	if !d.limiter.Allow(endpoint.ID) {
		d.metrics.RateLimitedTotal.WithLabelValues(string(eventType)).Inc()
		return 0, "", fmt.Errorf("rate limit exceeded for endpoint %s", endpoint.ID)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Herald-Event", string(eventType))
	req.Header.Set("X-Herald-Delivery", deliveryID)
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	excerptBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseExcerpt))
	excerpt := string(excerptBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, excerpt, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return resp.StatusCode, excerpt, nil
}

// Limiter exposes the per-endpoint rate limiter, mainly so handlers can
// reset state when an endpoint is deleted.
func (d *Deliverer) Limiter() *RateLimiter {
	return d.limiter
}
