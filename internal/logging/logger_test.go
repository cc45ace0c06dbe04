package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
)

func TestNewDefaultsToStdout(t *testing.T) {
	logger, err := New(config.LoggingConfig{LogLevel: "info"}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	cfg := config.LoggingConfig{
		LogFile:  path,
		LogLevel: "debug",
		MaxBytes: config.DefaultMaxBytes,
		MaxCount: config.DefaultMaxCount,
	}

	logger, err := New(cfg, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.Info("hello")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warning level", "warning", slog.LevelWarn},
		{"warn alias", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
		{"case insensitive", "DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoggerWith(t *testing.T) {
	logger, err := New(config.LoggingConfig{LogLevel: "info"}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	child := logger.With("component", "mqtt")
	if child == nil {
		t.Fatal("expected non-nil child logger")
	}
	if child == logger {
		t.Error("expected child logger to be different from parent")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected non-nil default logger")
	}
}

func TestSystemdModeWritesToStdoutOnly(t *testing.T) {
	cfg := config.LoggingConfig{
		LogLevel:    "info",
		SystemdMode: true,
		LogFile:     filepath.Join(t.TempDir(), "ignored.log"),
	}

	logger, err := New(cfg, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.closer != nil {
		t.Error("expected systemd mode to skip file rotation entirely")
	}
}
