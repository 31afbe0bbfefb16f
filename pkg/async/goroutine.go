package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/heraldhq/herald/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context detachment (the task outlives the caller's request context)
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` for fire-and-forget work such as
// webhook deliveries: the caller returns immediately, the task runs to
// completion, and its failure ends up in the log rather than nowhere.
//
// Example:
//
//	async.SafeGo(logger, 2*time.Minute, "webhook delivery", func(ctx context.Context) error {
//	    deliverer.Deliver(ctx, guildID, endpoint, payload)
//	    return nil
//	})
func SafeGo(logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		// Deliveries must survive the originating request, so the task gets
		// a fresh context bounded only by the timeout.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).
					WithField("stack", string(debug.Stack())).
					WithField("task", taskName).
					Error("PANIC in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
