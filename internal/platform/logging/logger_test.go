package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"go.uber.org/zap"
)

func TestLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(LevelInfo, &buf).Named("match_sync")

	logger.WarnContext(context.Background(), "refresh failed", "match_id", "m1", "error", errors.New("boom"))
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync logger: %v", err)
	}

	var line map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "refresh failed" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["logger"] != "match_sync" {
		t.Fatalf("unexpected logger name: %v", line["logger"])
	}
	if line["match_id"] != "m1" {
		t.Fatalf("unexpected match_id: %v", line["match_id"])
	}
	if line["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", line["error"])
	}
	if _, ok := line["trace_id"]; ok {
		t.Fatalf("trace_id must be absent without a span")
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(LevelWarn, &buf)

	logger.Info("dropped")
	logger.Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("error line missing: %s", out)
	}
}

func TestLogger_NilReceiverFallsBack(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected non-nil logger from nil receiver")
	}
}

func TestLogger_AcceptsZapFieldsAndDanglingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(LevelInfo, &buf).With("service", "polla")

	logger.Info("mixed", zap.Int("attempt", 3), "pool_id", "p1", "dangling")

	var line map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["service"] != "polla" || line["pool_id"] != "p1" {
		t.Fatalf("unexpected fields: %v", line)
	}
	if line["attempt"] != float64(3) {
		t.Fatalf("unexpected attempt: %v", line["attempt"])
	}
	if v, ok := line["dangling"]; !ok || v != nil {
		t.Fatalf("dangling key must be logged with nil, got %v (present=%v)", v, ok)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
