// Package logging provides a tiny abstraction over structured loggers so the
// rest of the codebase depends on a minimal interface (Logger) while the
// wiring layer decides on the concrete backend. Adapters for slog and zap are
// included; NoOpLogger discards everything and is the default for tests.
package logging
