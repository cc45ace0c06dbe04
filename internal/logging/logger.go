// Package logging wraps slog.Logger with the file-rotation, systemd,
// and print-logs behaviors mqtt-pg-logger-go runs under as a daemon.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines;
//     the underlying handler and rotating writer serialize writes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rosenloecher-it/mqtt-pg-logger-go/internal/config"
)

// Logger wraps slog.Logger with the service's default fields.
type Logger struct {
	*slog.Logger

	closer io.Closer
}

// New creates a Logger from the resolved logging configuration.
//
// Behavior mirrors the original tool's logging setup:
//   - systemd_mode drops timestamps (journald adds its own) and writes
//     to stdout regardless of log_file.
//   - print_logs tees file output to stdout as well, for foreground
//     debugging runs.
//   - a non-empty log_file enables size-based rotation via max_bytes
//     and max_count.
func New(cfg config.LoggingConfig, version string) (*Logger, error) {
	level := parseLevel(cfg.LogLevel)

	var writers []io.Writer
	var rotator *RotatingWriter

	if cfg.SystemdMode {
		writers = append(writers, os.Stdout)
	} else {
		if cfg.LogFile != "" {
			r, err := NewRotatingWriter(cfg.LogFile, effectiveMaxBytes(cfg.MaxBytes), effectiveMaxCount(cfg.MaxCount))
			if err != nil {
				return nil, err
			}
			rotator = r
			writers = append(writers, r)
		}
		if cfg.PrintLogs || cfg.LogFile == "" {
			writers = append(writers, os.Stdout)
		}
	}

	var output io.Writer = io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{Level: level}
	if cfg.SystemdMode {
		opts.ReplaceAttr = dropTimeAttr
	}

	handler := slog.NewTextHandler(output, opts).WithAttrs([]slog.Attr{
		slog.String("service", "mqtt-pg-logger"),
		slog.String("version", version),
	})

	var closer io.Closer
	if rotator != nil {
		closer = rotator
	}

	return &Logger{
		Logger: slog.New(handler),
		closer: closer,
	}, nil
}

// dropTimeAttr removes the time attribute so journald's own timestamp
// is the single source of truth under systemd.
func dropTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// parseLevel converts a configured level string to slog.Level.
// Supported levels: debug, info, warning, error. Defaults to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func effectiveMaxBytes(configured int64) int64 {
	if configured <= 0 {
		return config.DefaultMaxBytes
	}
	return configured
}

func effectiveMaxCount(configured int) int {
	if configured <= 0 {
		return config.DefaultMaxCount
	}
	return configured
}

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		closer: l.closer,
	}
}

// Close releases the rotating log file, if one is open.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Default creates a logger for use before configuration is loaded,
// writing text-formatted logs to stdout at info level.
func Default() *Logger {
	l, _ := New(config.LoggingConfig{
		LogLevel: "info",
	}, "dev")
	return l
}
