package iobus

import "log/slog"

// componentLogger returns a child logger tagged with component, falling back
// to slog.Default() when base is nil. Every package in this module takes a
// *slog.Logger at construction time the same way, rather than reaching for a
// package-global.
func componentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", component)
}
