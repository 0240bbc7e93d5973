// Package applog builds the engine's structured logger: a slog.Logger whose
// handler is chosen by format — pretty colored text on a TTY, JSON
// otherwise — mirroring the console/JSON duality the rest of the corpus
// ships for its own services.
package applog

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a logger for the given level/format. format: "auto" (default,
// pretty on a TTY, JSON otherwise), "pretty", "text", or "json".
func New(level, format string) *slog.Logger {
	lvl := parseLevel(level)
	h := newHandler(lvl, format)
	log := slog.New(h)
	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func newHandler(level slog.Level, format string) slog.Handler {
	out := os.Stdout
	format = strings.ToLower(strings.TrimSpace(format))
	color := isTerminal(out)

	if format == "" || format == "auto" {
		if color {
			format = "pretty"
		} else {
			format = "json"
		}
	}

	switch format {
	case "pretty":
		return newPrettyHandler(out, slog.HandlerOptions{Level: level}, color)
	case "text":
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
