// Package testutil provides loggers, a fake clock and a fake valuation
// backend for tests.
package testutil

import (
	"io"
	"log/slog"
)

// NewTestLogger creates a debug-level text logger writing to w.
// If w is nil, output is discarded.
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that discards all output
func DiscardLogger() *slog.Logger {
	return NewTestLogger(nil)
}
