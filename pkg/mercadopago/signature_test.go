package mercadopago

import (
	"fmt"
	"testing"
	"time"
)

const testSecret = "super-secret"

func signedHeader(t *testing.T, resourceID, requestID string, issued time.Time) string {
	t.Helper()
	ts := fmt.Sprintf("%d", issued.Unix())
	return fmt.Sprintf("ts=%s,v1=%s", ts, SignManifest(resourceID, requestID, ts, testSecret))
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "req-1", now)

	if !VerifySignature(header, "req-1", "12345", testSecret, SignatureOptions{Now: now}) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifySignatureWithoutRequestID(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "", now)

	if !VerifySignature(header, "", "12345", testSecret, SignatureOptions{Now: now}) {
		t.Fatalf("expected valid signature to verify without request id")
	}
}

func TestVerifySignatureRejectsMutation(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "req-1", now)

	// flip the last hex digit of the digest
	mutated := header[:len(header)-1]
	if header[len(header)-1] == 'a' {
		mutated += "b"
	} else {
		mutated += "a"
	}

	if VerifySignature(mutated, "req-1", "12345", testSecret, SignatureOptions{Now: now}) {
		t.Fatalf("mutated signature must not verify")
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "req-1", now.Add(-10*time.Minute))

	if VerifySignature(header, "req-1", "12345", testSecret, SignatureOptions{Now: now}) {
		t.Fatalf("stale timestamp must not verify")
	}
}

func TestVerifySignatureToleranceDisabled(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "req-1", now.Add(-48*time.Hour))

	opts := SignatureOptions{Now: now, DisableTolerance: true}
	if !VerifySignature(header, "req-1", "12345", testSecret, opts) {
		t.Fatalf("historical replay with tolerance disabled should verify")
	}
}

func TestVerifySignatureRejectsMalformedInputs(t *testing.T) {
	now := time.Now()
	header := signedHeader(t, "12345", "", now)

	cases := map[string]bool{
		"":                       VerifySignature("", "", "12345", testSecret, SignatureOptions{Now: now}),
		"missing secret":         VerifySignature(header, "", "12345", "", SignatureOptions{Now: now}),
		"missing resource":       VerifySignature(header, "", "", testSecret, SignatureOptions{Now: now}),
		"garbage header":         VerifySignature("not-a-header", "", "12345", testSecret, SignatureOptions{Now: now}),
		"unparsable ts":          VerifySignature("ts=abc,v1=deadbeef", "", "12345", testSecret, SignatureOptions{Now: now}),
		"wrong resource in hmac": VerifySignature(header, "", "99999", testSecret, SignatureOptions{Now: now}),
	}

	for name, got := range cases {
		if got {
			t.Fatalf("case %q: expected verification to fail", name)
		}
	}
}
