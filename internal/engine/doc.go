// Package engine wires providers, the merge orchestrator, the catalog and the
// caches into the operations the CLI and HTTP API expose.
//
// An Engine is built once per process. Identical concurrent searches are
// coalesced with singleflight; provider fan-out is bounded by
// providers.search_concurrency; search results and normalized comment
// streams are cached for their configured TTLs, optionally persisted through
// a kvstore backend.
package engine
