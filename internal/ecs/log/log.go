// Package log provides the structured logger World and its subsystems
// write through. It wraps log/slog rather than adopting a third-party
// structured-logging library: no example repository in the corpus pulls a
// logging library specifically for an ECS-shaped core (the teacher's
// metrics.go/errors.go print via the standard "log" package with no
// structure at all), so this is the stdlib justification recorded in
// DESIGN.md — slog is the standard library's own structured-logging
// answer, adopted here in preference to a hand-rolled formatter.
package log

import (
	"log/slog"
	"os"
)

// Logger is the structured logger the runtime passes around. It is a thin
// alias over *slog.Logger so call sites can use the familiar
// With/Info/Warn/Error vocabulary without this package inventing its own.
type Logger = slog.Logger

// New creates a Logger writing structured text to stderr, tagged with the
// given component name, e.g. New("family").
func New(component string) *Logger {
	base := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return base.With("component", component)
}

// Nop returns a Logger that discards everything, for tests that want to
// exercise logging call sites without polluting test output.
func Nop() *Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
