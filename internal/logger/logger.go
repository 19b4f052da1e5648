package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a new structured logger using slog
func New() *slog.Logger {
	return NewWithLevel(slog.LevelInfo)
}

// NewWithLevel creates a new logger with specified log level
func NewWithLevel(level slog.Level) *slog.Logger {
	return newLogger(os.Stdout, "json", level)
}

// NewFromConfig creates a logger from textual level and format values.
// The level "off" silences logging; unknown levels fall back to info, unknown formats to json.
func NewFromConfig(level, format string) *slog.Logger {
	if strings.EqualFold(level, "off") {
		return Discard()
	}
	return newLogger(os.Stdout, format, ParseLevel(level))
}

// ParseLevel converts a level name to slog.Level
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

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger whose handler is disabled for every level
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
