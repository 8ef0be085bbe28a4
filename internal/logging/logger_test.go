package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitporter/gitporter/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(config.LoggingConfig{
		Level:      "debug",
		Format:     "json",
		OutputFile: filepath.Join(dir, "test.log"),
		MaxSize:    1,
	})
	if logger == nil {
		t.Fatal("NewLogger() returned nil")
	}
	logger.Debug("hello", "key", "value")
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	handler := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)

	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = false, want true while one handler accepts it")
	}

	logger := slog.New(handler)
	logger.Info("visible")
	logger.Error("loud")

	if !strings.Contains(a.String(), "visible") || !strings.Contains(a.String(), "loud") {
		t.Errorf("first handler missing records: %q", a.String())
	}
	if strings.Contains(b.String(), "visible") {
		t.Error("second handler received a record below its level")
	}
	if !strings.Contains(b.String(), "loud") {
		t.Error("second handler missing error record")
	}
}

func TestForProvider(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ForProvider(logger, "github").Info("listing")
	if !strings.Contains(buf.String(), "provider=github") {
		t.Errorf("missing provider attribute: %q", buf.String())
	}
}
