// Package logging assembles the structured slog loggers used across lapse.
//
// It centralizes level and output plumbing, standardizes attribute keys so
// every component tags lines the same way, and exposes a no-op logger for
// tests and wiring code that cannot fail. Log files are rotated by the
// end-of-day pass and pruned by retention cleanup.
package logging
