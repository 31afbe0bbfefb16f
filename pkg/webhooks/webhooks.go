package webhooks

import (
	"context"
	"time"

	"github.com/heraldhq/herald/pkg/async"
	"github.com/heraldhq/herald/pkg/observability"
)

// EventType represents the type of guild event delivered to webhooks
type EventType string

const (
	EventBotStarted       EventType = "bot.started"
	EventBotStopped       EventType = "bot.stopped"
	EventChannelCreated   EventType = "channel.created"
	EventChannelDeleted   EventType = "channel.deleted"
	EventModerationWarned EventType = "moderation.warned"
	EventModerationBanned EventType = "moderation.banned"
	EventConfigUpdated    EventType = "config.updated"
	EventHealthDegraded   EventType = "health.degraded"

	// EventTest is reserved for manual connectivity checks
	EventTest EventType = "test"
)

// KnownEventTypes returns all event types an endpoint may subscribe to
func KnownEventTypes() []EventType {
	return []EventType{
		EventBotStarted,
		EventBotStopped,
		EventChannelCreated,
		EventChannelDeleted,
		EventModerationWarned,
		EventModerationBanned,
		EventConfigUpdated,
		EventHealthDegraded,
	}
}

// Known reports whether the event type is part of the subscription enumeration
func (t EventType) Known() bool {
	for _, known := range KnownEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Endpoint represents a guild-configured webhook destination
type Endpoint struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Secret      string      `json:"secret,omitempty"`
	Events      []EventType `json:"events"`
	Enabled     bool        `json:"enabled"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Subscribed reports whether the endpoint listens for the event type
func (e *Endpoint) Subscribed(eventType EventType) bool {
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

// EventPayload is the JSON body delivered to webhook endpoints. One payload
// is built per event and shared, immutable, across every matched endpoint.
type EventPayload struct {
	Event     EventType              `json:"event"`
	Timestamp string                 `json:"timestamp"`
	GuildID   string                 `json:"guild_id"`
	Data      map[string]interface{} `json:"data"`
}

// EndpointSource supplies the webhook configuration for a guild. The
// configuration store itself lives outside this package; the in-memory
// Registry is one implementation, a database-backed store is another.
type EndpointSource interface {
	GuildEndpoints(ctx context.Context, guildID string) ([]Endpoint, error)
}

// Manager fans guild events out to subscribed endpoints
type Manager struct {
	source    EndpointSource
	deliverer *Deliverer
	logger    *observability.Logger
	metrics   *observability.Metrics

	// dispatchTimeout bounds one endpoint's full delivery cycle, retries and
	// backoff included
	dispatchTimeout time.Duration
}

// NewManager creates a Manager
func NewManager(source EndpointSource, deliverer *Deliverer, logger *observability.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		source:          source,
		deliverer:       deliverer,
		logger:          logger,
		metrics:         metrics,
		dispatchTimeout: 2 * time.Minute,
	}
}

// FireEvent dispatches an event to every enabled endpoint subscribed to it.
// It returns once the deliveries have been scheduled: the caller is never
// blocked by a slow receiver, and a misconfigured guild never raises an error
// into the business module that produced the event.
func (m *Manager) FireEvent(ctx context.Context, eventType EventType, guildID string, data map[string]interface{}) {
	endpoints, err := m.source.GuildEndpoints(ctx, guildID)
	if err != nil {
		m.logger.WithError(err).WithField("guild_id", guildID).Warn("webhook config lookup failed, dropping event")
		return
	}
	if len(endpoints) == 0 {
		return
	}

	matched := endpoints[:0:0]
	for _, ep := range endpoints {
		if ep.Enabled && ep.Subscribed(eventType) {
			matched = append(matched, ep)
		}
	}
	if len(matched) == 0 {
		return
	}

	payload := EventPayload{
		Event:     eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GuildID:   guildID,
		Data:      data,
	}

	for _, ep := range matched {
		endpoint := ep
		async.SafeGoNoError(m.logger, m.dispatchTimeout, "webhook delivery", func(taskCtx context.Context) {
			m.deliverer.Deliver(taskCtx, guildID, endpoint, payload)
		})
	}
}

// TestEndpoint sends a single synthetic "test" event synchronously, bypassing
// retry logic, and returns the raw outcome for manual connectivity checks.
func (m *Manager) TestEndpoint(ctx context.Context, guildID string, endpoint Endpoint) TestResult {
	payload := EventPayload{
		Event:     EventTest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GuildID:   guildID,
		Data:      map[string]interface{}{"message": "herald connectivity test"},
	}
	return m.deliverer.DeliverOnce(ctx, guildID, endpoint, payload)
}

// DeliveryLog returns the most recent delivery attempts for a guild,
// newest first. The limit is clamped server-side.
func (m *Manager) DeliveryLog(ctx context.Context, guildID string, limit int) ([]DeliveryAttempt, error) {
	return m.deliverer.log.List(ctx, guildID, limit)
}
