// Package logging builds the process logger: JSON lines for production,
// or coloured console output via tint for local development.
//
// Usage:
//
//	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
//	slog.SetDefault(logger)
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Formats accepted by New.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// New returns a logger writing to w. format is FormatJSON or FormatPretty;
// anything else falls back to JSON. level is debug, info, warn or error.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, FormatPretty) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
			AddSource:  lvl == slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
