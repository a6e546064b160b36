// Package observability sets up structured logging.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls the process logger
type LogConfig struct {
	Level  string // debug, info, warn, error (default: info)
	Format string // json or text (default: json)

	// File, when set, receives logs instead of stderr and is rotated
	File       string
	MaxSizeMB  int // default: 10
	MaxBackups int // default: 3
	MaxAgeDays int // default: 7
}

// SetupLogger builds a slog.Logger from c and installs it as the default.
// The returned closer releases the log file, if any.
func SetupLogger(c LogConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if c.File != "" {
		rotator := newRotator(c)
		out, closer = rotator, rotator
	}

	logger := slog.New(newHandler(out, c))
	slog.SetDefault(logger)
	return logger, closer
}

func newRotator(c LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    orDefault(c.MaxSizeMB, 10),
		MaxBackups: orDefault(c.MaxBackups, 3),
		MaxAge:     orDefault(c.MaxAgeDays, 7),
		Compress:   true,
	}
}

func orDefault(value, def int) int {
	if value <= 0 {
		return def
	}
	return value
}

func newHandler(out io.Writer, c LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	if strings.EqualFold(c.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
