package webhooks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Delivery attempt statuses
const (
	AttemptStatusSuccess = "success"
	AttemptStatusFailure = "failure"
)

// DefaultHistoryLimit is the per-guild delivery log retention ceiling
const DefaultHistoryLimit = 100

// DeliveryAttempt records one physical delivery attempt. Attempts are
// append-only: created once, never mutated, pruned when a guild's history
// exceeds the retention ceiling.
type DeliveryAttempt struct {
	ID              string    `json:"id"`
	GuildID         string    `json:"guild_id"`
	EndpointID      string    `json:"endpoint_id"`
	EventType       EventType `json:"event_type"`
	AttemptNumber   int       `json:"attempt_number"`
	Status          string    `json:"status"`
	HTTPStatus      int       `json:"http_status,omitempty"`
	ResponseExcerpt string    `json:"response_excerpt,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	DurationMs      int       `json:"duration_ms"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// DeliveryLogStore persists delivery attempts per guild. Record must prune
// the guild's history to the retention ceiling in the same operation, and
// implementations must tolerate interleaved writes from concurrent
// deliveries.
type DeliveryLogStore interface {
	Record(ctx context.Context, attempt DeliveryAttempt) error
	List(ctx context.Context, guildID string, limit int) ([]DeliveryAttempt, error)
	Close() error
}

// clampLimit bounds a caller-supplied limit to [1, max]
func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// MemoryLogStore is an in-process DeliveryLogStore for single-instance
// deployments and tests.
type MemoryLogStore struct {
	mu       sync.RWMutex
	attempts map[string][]DeliveryAttempt
	limit    int
}

// NewMemoryLogStore creates a memory-backed store with the given per-guild
// retention ceiling. limit <= 0 selects DefaultHistoryLimit.
func NewMemoryLogStore(limit int) *MemoryLogStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryLogStore{
		attempts: make(map[string][]DeliveryAttempt),
		limit:    limit,
	}
}

// Record appends an attempt and prunes the guild's history in one operation
func (s *MemoryLogStore) Record(ctx context.Context, attempt DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.attempts[attempt.GuildID], attempt)
	if len(history) > s.limit {
		history = history[len(history)-s.limit:]
	}
	s.attempts[attempt.GuildID] = history
	return nil
}

// List returns a guild's attempts, most recent first
func (s *MemoryLogStore) List(ctx context.Context, guildID string, limit int) ([]DeliveryAttempt, error) {
	limit = clampLimit(limit, s.limit)

	s.mu.RLock()
	history := s.attempts[guildID]
	result := make([]DeliveryAttempt, len(history))
	copy(result, history)
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close implements DeliveryLogStore
func (s *MemoryLogStore) Close() error {
	return nil
}

var _ DeliveryLogStore = (*MemoryLogStore)(nil)
