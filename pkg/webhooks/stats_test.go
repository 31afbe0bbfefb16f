package webhooks

import (
	"context"
	"testing"
	"time"
)

func TestDeliveryStats(t *testing.T) {
	store := NewMemoryLogStore(100)
	d := newTestDeliverer(t, store, nil)
	manager := NewManager(&staticSource{}, d, newTestLogger(), newTestMetrics())
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	record := func(endpointID, status string, n int, durationMs int, at time.Time) {
		attempt := makeAttempt("guild-1", n, at)
		attempt.EndpointID = endpointID
		attempt.Status = status
		attempt.DurationMs = durationMs
		store.Record(ctx, attempt)
	}

	record("ep-1", AttemptStatusSuccess, 1, 10, base)
	record("ep-1", AttemptStatusFailure, 2, 30, base.Add(time.Minute))
	record("ep-1", AttemptStatusSuccess, 3, 20, base.Add(2*time.Minute))
	record("ep-2", AttemptStatusFailure, 1, 99, base.Add(3*time.Minute))

	stats, err := manager.DeliveryStats(ctx, "guild-1", "ep-1")
	if err != nil {
		t.Fatalf("DeliveryStats failed: %v", err)
	}

	if stats.TotalAttempts != 3 {
		t.Errorf("TotalAttempts = %d, want 3", stats.TotalAttempts)
	}
	if stats.SuccessfulAttempts != 2 || stats.FailedAttempts != 1 {
		t.Errorf("success/failure = %d/%d, want 2/1", stats.SuccessfulAttempts, stats.FailedAttempts)
	}
	if stats.SuccessRate < 0.66 || stats.SuccessRate > 0.67 {
		t.Errorf("SuccessRate = %f", stats.SuccessRate)
	}
	if stats.AvgDurationMs != 20 {
		t.Errorf("AvgDurationMs = %d, want 20", stats.AvgDurationMs)
	}
	if stats.LastAttemptAt == nil || !stats.LastAttemptAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("LastAttemptAt = %v", stats.LastAttemptAt)
	}
	if stats.LastSuccessAt == nil || !stats.LastSuccessAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("LastSuccessAt = %v", stats.LastSuccessAt)
	}

	empty, err := manager.DeliveryStats(ctx, "guild-1", "ep-404")
	if err != nil {
		t.Fatalf("DeliveryStats failed: %v", err)
	}
	if empty.TotalAttempts != 0 || empty.SuccessRate != 0 {
		t.Errorf("expected zero stats for unknown endpoint: %+v", empty)
	}
}
