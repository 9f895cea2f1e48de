// Package logging configures tkt's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Init configures the global slog default with the given level and format.
// If w is nil, os.Stderr is used. Format must be "text" or "json".
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// LevelForVerbosity maps a repeated -v count to a level: warn by default,
// info for one, debug for two or more.
func LevelForVerbosity(count int) slog.Level {
	switch {
	case count <= 0:
		return slog.LevelWarn
	case count == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New returns a logger with a "component" attribute for module-scoped logging.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// NewRunID returns an identifier for one tkt invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRun returns logger tagged with a run identifier.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With(slog.String("run", runID))
}
