// Package logging builds the slog loggers used by the service and CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Formats accepted by New.
const (
	FormatTint = "tint"
	FormatJSON = "json"
	FormatText = "text"
)

// New creates a logger writing to w (os.Stderr when nil).
//
// The tint format is colourised console output with a short clock; json and
// text use slog's own handlers. All formats report the "error" key as "err".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: renameError,
		})
	case FormatText:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: renameError,
		})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.TimeOnly,
			ReplaceAttr: renameError,
		})
	}

	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error (any case) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Component returns logger tagged with component=name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String("component", name))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func renameError(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}
