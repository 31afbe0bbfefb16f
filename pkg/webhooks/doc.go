// Package webhooks provides outbound webhook delivery for guild events.
//
// # Overview
//
// This package manages endpoint registration, SSRF-validated delivery with
// HMAC signatures, bounded retries, per-endpoint rate limiting, and a bounded
// per-guild delivery log.
//
// # Events
//
// bot.started, bot.stopped
// channel.created, channel.deleted
// moderation.warned, moderation.banned
// config.updated, health.degraded
//
// # Usage Example
//
// Register endpoint:
//
//	endpoint, err := registry.Create(ctx, guildID, webhooks.CreateRequest{
//		URL:    "https://api.example.com/hooks/guild",
//		Secret: "endpoint-secret",
//		Events: []webhooks.EventType{webhooks.EventModerationBanned},
//	})
//
// Fire event (never blocks, never fails the caller):
//
//	manager.FireEvent(ctx, webhooks.EventModerationBanned, guildID, map[string]interface{}{
//		"user_id":   userID,
//		"moderator": modID,
//	})
//
// Verify signature (receiver side):
//
//	sig := r.Header.Get("X-Signature-256")
//	if !webhooks.VerifySignature(body, secret, sig) {
//		return errors.New("invalid signature")
//	}
//
// # Retry Policy
//
// Four attempts per delivery with backoff delays of 1s, 3s, 9s. Every attempt
// is validated against DNS rebinding and recorded in the delivery log before
// the next one is scheduled.
//
// # Related Packages
//
//   - pkg/urlcheck: SSRF validation applied at registration and send time
//   - pkg/async: fire-and-forget delivery goroutines
package webhooks
