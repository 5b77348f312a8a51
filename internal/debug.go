// Package internal holds small helpers shared across the lora
// sub-packages: structured-log forwarding, a bounded event ring, and
// jittered delay generation for Listen-Before-Talk backoff.
package internal

import (
	"context"
	"log/slog"
)

// LevelTrace is a slog level below LevelDebug, used for the
// per-tick/per-packet chatter that would otherwise flood a debug log.
const LevelTrace slog.Level = slog.LevelDebug - 4

// LogAttrs forwards to l.LogAttrs if l is non-nil, and is a no-op
// otherwise. Every log call in this module goes through here so a nil
// *slog.Logger silently disables logging instead of panicking.
func LogAttrs(l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if l != nil {
		l.LogAttrs(context.Background(), level, msg, attrs...)
	}
}

// Enabled reports whether l would emit a record at lvl, treating a nil
// logger as always disabled.
func Enabled(l *slog.Logger, lvl slog.Level) bool {
	return l != nil && l.Handler().Enabled(context.Background(), lvl)
}
