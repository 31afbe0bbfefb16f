package webhooks

import (
	"context"
	"time"
)

// DeliveryStats summarizes the retained delivery history for one endpoint.
// Figures cover only the attempts still inside the retention window.
type DeliveryStats struct {
	EndpointID         string     `json:"endpoint_id"`
	TotalAttempts      int        `json:"total_attempts"`
	SuccessfulAttempts int        `json:"successful_attempts"`
	FailedAttempts     int        `json:"failed_attempts"`
	SuccessRate        float64    `json:"success_rate"`
	AvgDurationMs      int        `json:"avg_duration_ms"`
	LastAttemptAt      *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt      *time.Time `json:"last_success_at,omitempty"`
}

// DeliveryStats computes per-endpoint stats from the guild's retained
// delivery log.
func (m *Manager) DeliveryStats(ctx context.Context, guildID, endpointID string) (DeliveryStats, error) {
	attempts, err := m.deliverer.log.List(ctx, guildID, 0)
	if err != nil {
		return DeliveryStats{}, err
	}

	stats := DeliveryStats{EndpointID: endpointID}
	totalDuration := 0
	for i := range attempts {
		attempt := &attempts[i]
		if attempt.EndpointID != endpointID {
			continue
		}
		stats.TotalAttempts++
		totalDuration += attempt.DurationMs

		occurred := attempt.OccurredAt
		if stats.LastAttemptAt == nil || occurred.After(*stats.LastAttemptAt) {
			t := occurred
			stats.LastAttemptAt = &t
		}
		if attempt.Status == AttemptStatusSuccess {
			stats.SuccessfulAttempts++
			if stats.LastSuccessAt == nil || occurred.After(*stats.LastSuccessAt) {
				t := occurred
				stats.LastSuccessAt = &t
			}
		} else {
			stats.FailedAttempts++
		}
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.SuccessfulAttempts) / float64(stats.TotalAttempts)
		stats.AvgDurationMs = totalDuration / stats.TotalAttempts
	}
	return stats, nil
}
