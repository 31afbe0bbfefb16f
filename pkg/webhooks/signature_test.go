package webhooks

import (
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"event":"channel.created","guild_id":"g1"}`)

	sig := Sign(payload, "secret")
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature %q missing sha256= prefix", sig)
	}
	if len(sig) != len("sha256=")+64 {
		t.Errorf("signature length = %d, want %d", len(sig), len("sha256=")+64)
	}

	// Deterministic for identical inputs
	if again := Sign(payload, "secret"); again != sig {
		t.Error("expected identical signature for identical inputs")
	}

	// Sensitive to the secret
	if other := Sign(payload, "different"); other == sig {
		t.Error("expected different signature for different secret")
	}

	// Sensitive to the payload
	if other := Sign([]byte(`{}`), "secret"); other == sig {
		t.Error("expected different signature for different payload")
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	sig := Sign(payload, "secret")

	if !VerifySignature(payload, "secret", sig) {
		t.Error("expected valid signature to verify")
	}
	if VerifySignature(payload, "wrong", sig) {
		t.Error("expected wrong secret to fail verification")
	}
	if VerifySignature([]byte(`tampered`), "secret", sig) {
		t.Error("expected tampered payload to fail verification")
	}
	if VerifySignature(payload, "secret", "sha256=deadbeef") {
		t.Error("expected bogus signature to fail verification")
	}
}
