// Package catalog holds search results between a search and the episode or
// comment requests that follow it.
//
// Entries carry their provider source, episode links, and for merge products
// the ids of the entries they were built from. Store is bounded: once it
// holds more than its configured maximum, the oldest entries and their
// episode handles are evicted first. Ids are stable FNV hashes masked to 53
// bits so they survive a JSON round trip through JavaScript clients.
package catalog
