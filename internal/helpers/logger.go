package helpers

import (
	"io"
	"log/slog"
)

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewJSONLogger returns a JSON logger writing to w. Each verbosity step lowers the level by one slog level,
// starting from Warn.
func NewJSONLogger(w io.Writer, verbosity int, callerTrace bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: callerTrace,
		Level:     LevelFromVerbosity(verbosity),
	}))
}

// LevelFromVerbosity maps a -v count to a slog level.
func LevelFromVerbosity(verbosity int) slog.Level {
	return slog.LevelWarn - slog.Level(verbosity*4)
}
