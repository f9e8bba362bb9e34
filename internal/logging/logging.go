package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const EnvironmentProduction = "production"

// ParseLevel maps debug|info|warn|error onto slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// New returns a JSON logger in production and a colourised tint logger
// everywhere else.
func New(w io.Writer, environment, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if environment == EnvironmentProduction {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05.000",
		NoColor:    !isTerminal(w),
	}))
}

type fdWriter interface {
	Fd() uintptr
}

// isTerminal is a cheap check: only *os.File writers get colour.
func isTerminal(w io.Writer) bool {
	_, ok := w.(fdWriter)
	return ok
}

// Discard is a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
