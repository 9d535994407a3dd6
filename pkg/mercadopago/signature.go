package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReplayTolerance bounds how far a webhook timestamp may drift from now
// before the signature is rejected.
const ReplayTolerance = 300 * time.Second

// SignatureOptions tweaks verification for non-live paths.
type SignatureOptions struct {
	// DisableTolerance skips the timestamp window check. Only used when
	// replaying historical events whose timestamps are legitimately old.
	DisableTolerance bool
	// Now overrides the clock, for tests.
	Now time.Time
}

// VerifySignature checks the x-signature header against the canonical
// manifest `id:<resourceID>;[request-id:<requestID>;]ts:<ts>;` signed with
// HMAC-SHA256. It is a pure predicate: every malformed input yields false.
func VerifySignature(header, requestID, resourceID, secret string, opts SignatureOptions) bool {
	if header == "" || secret == "" || resourceID == "" {
		return false
	}

	ts, signature, ok := parseSignatureHeader(header)
	if !ok {
		return false
	}

	if !opts.DisableTolerance {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		issued, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false
		}
		drift := now.Sub(time.Unix(issued, 0))
		if drift < 0 {
			drift = -drift
		}
		if drift > ReplayTolerance {
			return false
		}
	}

	expected := computeSignature(buildManifest(resourceID, requestID, ts), secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// SignManifest produces the v1 digest for the given manifest inputs. Exposed
// so tests and local tooling can fabricate valid headers.
func SignManifest(resourceID, requestID, ts, secret string) string {
	return computeSignature(buildManifest(resourceID, requestID, ts), secret)
}

func buildManifest(resourceID, requestID, ts string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:%s;", resourceID)
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%s;", ts)
	return b.String()
}

func computeSignature(manifest, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return "", "", false
	}
	return ts, v1, true
}
