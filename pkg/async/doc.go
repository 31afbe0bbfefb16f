// Package async provides panic-safe helpers for fire-and-forget goroutines.
//
// Webhook deliveries are started and not awaited; SafeGo guarantees the
// spawned task runs with a bounded lifetime, recovers panics, and logs
// failures instead of dropping them silently.
package async
