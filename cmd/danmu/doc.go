// Package main hosts the danmu CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the provider
// registry and engine on demand, and exposes search, episode listing, comment
// retrieval, cache maintenance, and the HTTP server. Output is rendered as
// tables on a terminal and as JSON when --json is set.
package main
