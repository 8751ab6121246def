// Package kvstore persists cache payloads as key → serialized value plus a
// change hash.
//
// Three backends share the Store interface: an in-process map, a JSON file
// rewritten atomically on change, and a SQLite database opened in WAL mode
// with busy retries. Put computes a SHA-256 hash of the value and skips the
// write when the stored hash already matches, so unchanged cache refreshes do
// not touch disk.
//
// Open selects the backend from cache.backend in the configuration.
package kvstore
