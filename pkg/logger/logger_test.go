package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithPaymentID(ctx, "12345")
	logg.Info(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "req-1" {
		t.Fatalf("missing request_id: %v", line)
	}
	if line["payment_id"] != "12345" {
		t.Fatalf("missing payment_id: %v", line)
	}
	if line["service"] != "test" {
		t.Fatalf("missing service: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatalf("expected debug")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatalf("empty should default to info")
	}
	if ParseLevel("garbage") != zerolog.InfoLevel {
		t.Fatalf("unknown should default to info")
	}
}
