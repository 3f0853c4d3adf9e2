// Package logging assembles structured slog loggers and formatting helpers used
// across moviemeta.
//
// It owns the console and JSON handlers, an optional JSON log file tee, and
// context-aware helpers that tag lines with correlation ids and the active
// query. A no-op logger is provided for tests and wiring code that cannot fail.
package logging
