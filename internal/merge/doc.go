// Package merge fuses catalog entries from different providers that describe
// the same content, and resolves the compound locators it produces back into
// one comment stream.
//
// Catalog time: for every configured merge group, each primary entry is
// matched against the secondary sources' entries (FindSecondaryMatch), the
// episode lists are aligned, and the secondary locators are appended to the
// aligned primary episode links. Outputs are deduplicated by content
// signature, and the entries they consume are removed from the result set.
//
// Request time: FetchMergedComments splits a locator, fetches every part
// through a shared in-flight task cache so concurrent requests for the same
// provider episode cause one upstream fetch, merges the parts by timestamp
// and normalizes the result under the combined source tag.
package merge
