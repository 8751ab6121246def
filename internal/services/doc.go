// Package services defines shared utilities consumed by the engine, the
// provider adapters, and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, provider names, and search
//     session identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP statuses and log levels.
//   - Cancellation classification so aborted work is never logged as a
//     failure or retried.
//
// Use these helpers when wiring new provider or engine code so operational
// behaviour (error handling, observability) stays uniform across sources.
package services
