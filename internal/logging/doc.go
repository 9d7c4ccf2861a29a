// Package logging assembles the structured slog loggers used across the
// culling pipeline. It owns the console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so background work can
// automatically tag log lines with asset paths, session IDs, and export run
// IDs. A no-op logger is provided for tests and wiring code that cannot fail.
package logging
