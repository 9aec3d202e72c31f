package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-classroom/internal/platform/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogConfig{Level: "info", Format: "json"})

	log.Debug("hidden")
	log.Info("topic updated", "topic_id", "t1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, `"topic_id":"t1"`) {
		t.Errorf("expected JSON attribute in output: %s", out)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogConfig{Level: "debug", Format: "text"})

	log.Debug("cache miss", "key", "topic:1")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "key=topic:1") {
		t.Errorf("unexpected text output: %s", out)
	}
}
