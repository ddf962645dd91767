package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text-handler slog logger writing to stderr, so progress
// narration never mixes with anything a caller pipes from stdout.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// NewWithWriter is New with an explicit sink, for tests.
func NewWithWriter(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
