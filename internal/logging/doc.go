// Package logging assembles structured slog loggers and formatting helpers used
// across the danmu engine, provider adapters, and HTTP server.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine code can automatically tag log
// lines with request IDs, provider names, and search session IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
