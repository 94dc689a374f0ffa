package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNew_WritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "tradebot", slog.LevelInfo)
	l.Debug("hidden")
	l.Info("hello")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["service"] != "tradebot" || rec["msg"] != "hello" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if tid := TraceID(ctx); tid != "" {
		t.Errorf("expected empty trace id, got %q", tid)
	}
	ctx = WithTraceID(ctx, "TCS-1")
	if tid := TraceID(ctx); tid != "TCS-1" {
		t.Errorf("expected 'TCS-1', got %q", tid)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("RELIANCE", ts)
	if !strings.HasPrefix(tid, "RELIANCE-") || !strings.HasSuffix(tid, "123456789") {
		t.Errorf("unexpected trace id %s", tid)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "svc", slog.LevelInfo)

	FromContext(WithTraceID(context.Background(), "INFY-42"), base).Info("cycle")
	if !strings.Contains(buf.String(), `"trace_id":"INFY-42"`) {
		t.Errorf("trace id missing: %s", buf.String())
	}

	buf.Reset()
	FromContext(context.Background(), base).Info("plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace id: %s", buf.String())
	}
}
