package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the payload signature on outbound deliveries
const SignatureHeader = "X-Signature-256"

// Sign computes the HMAC-SHA256 signature of the exact payload bytes that
// will be transmitted, using the endpoint secret as the key.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies a received signature against the raw body and the
// shared secret. Receivers must treat an absent signature as an
// unauthenticated delivery, not as tampering: endpoints without a configured
// secret are delivered unsigned.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
