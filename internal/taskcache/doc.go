// Package taskcache deduplicates in-flight upstream fetches.
//
// Callers acquiring the same key while a fetch is running share its result
// instead of starting another. The fetch runs on a context detached from any
// single caller; it is cancelled only when every caller waiting on it has
// given up. The entry is removed only once the fetch settles, so a cancelled
// fetch still winding down is never run alongside a fresh one for the same
// key.
package taskcache
