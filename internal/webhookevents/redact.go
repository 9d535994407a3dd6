package webhookevents

import (
	"encoding/json"
	"strings"
)

const (
	maskValue       = "***"
	truncationMark  = "...[truncated]"
	minPayloadBytes = 64
)

var sensitiveKeyFragments = []string{
	"secret",
	"token",
	"password",
	"authorization",
	"email",
	"card",
	"cvv",
	"ssn",
}

// SanitizePayload masks sensitive fields and caps the payload at maxBytes so
// the stored audit trail is safe to render in an admin UI. Non-JSON input is
// truncated as-is.
func SanitizePayload(raw []byte, maxBytes int) string {
	if maxBytes < minPayloadBytes {
		maxBytes = minPayloadBytes
	}

	out := raw
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		masked := maskSensitive(decoded)
		if encoded, err := json.Marshal(masked); err == nil {
			out = encoded
		}
	}

	if len(out) > maxBytes {
		return string(out[:maxBytes]) + truncationMark
	}
	return string(out)
}

func maskSensitive(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, nested := range typed {
			if isSensitiveKey(key) {
				typed[key] = maskValue
				continue
			}
			typed[key] = maskSensitive(nested)
		}
		return typed
	case []any:
		for i, nested := range typed {
			typed[i] = maskSensitive(nested)
		}
		return typed
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
