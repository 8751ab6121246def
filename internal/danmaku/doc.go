// Package danmaku converts provider comment records into the canonical
// comment list served to players.
//
// Normalizer runs a fixed pipeline: convert raw records into render specs,
// drop blocklisted text, group duplicates inside time buckets, sample down to
// the configured ceiling, then apply cosmetic rewrites (position, color,
// script). Every stage accepts an empty slice and returns an empty slice.
//
// The render spec is "time,mode,color,[source]" where time has two decimals,
// mode is 1 (scroll), 4 (bottom), or 5 (top), and color is a 24-bit RGB
// integer. Merged streams carry every contributing source joined by '&'.
package danmaku
