package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn line missing")
	}
}

func TestRequestLoggerCarriesSessionAndCorrelation(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, "info")
	ctx := WithCorrelationID(context.Background(), "corr-42")

	RequestLogger(base, ctx, "sess_abc").Info("processing message")

	out := buf.String()
	if !strings.Contains(out, `"session_id":"sess_abc"`) {
		t.Errorf("log line missing session id: %s", out)
	}
	if !strings.Contains(out, `"correlation_id":"corr-42"`) {
		t.Errorf("log line missing correlation id: %s", out)
	}
}

func TestWithCorrelationIDMintsWhenEmpty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	if CorrelationID(ctx) == "" {
		t.Error("empty correlation id should be replaced with a generated one")
	}
}
