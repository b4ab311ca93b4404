package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCapture_TeesRecords(t *testing.T) {
	var out bytes.Buffer
	next := slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn})

	c := NewCapture(next, slog.LevelDebug)
	logger := WithWorker(c.Logger(), 3)

	logger.Debug("debug line")
	logger.Warn("warn line", "key", "value")

	captured := c.String()
	if !strings.Contains(captured, "debug line") || !strings.Contains(captured, "warn line") {
		t.Errorf("capture missing records: %q", captured)
	}
	if !strings.Contains(captured, "worker=3") {
		t.Errorf("capture missing attrs: %q", captured)
	}
	if strings.Contains(out.String(), "debug line") {
		t.Error("next handler should respect its own level")
	}
	if !strings.Contains(out.String(), "warn line") {
		t.Error("next handler should receive warn records")
	}
}

func TestCapture_WithoutNext(t *testing.T) {
	c := NewCapture(nil, slog.LevelInfo)
	c.Logger().WithGroup("g").Info("hello", "a", 1)
	if !strings.Contains(c.String(), "g.a=1") {
		t.Errorf("unexpected capture: %q", c.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"other": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("LOG_FORMAT", "text")
	NewLogger(&buf, slog.LevelInfo).Info("hello", "cycle", "FirstCycle")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "cycle=FirstCycle") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	buf.Reset()
	t.Setenv("LOG_FORMAT", "")
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("INFO record should be filtered at WARN level")
	}
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
