// Package preflight provides readiness checks for the directories and
// upstream provider endpoints danmu depends on.
//
// The CLI "danmu doctor" command runs RunAll and renders the results; the
// server logs the same results once at startup. Checks for disabled
// providers are skipped.
package preflight
