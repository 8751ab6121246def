// Package ttlcache provides a time-boxed key/value cache with lazy expiry.
//
// Entries expire when more than the configured TTL has passed since they
// were stored. Expiry is checked on read only; there is no background sweep.
// A cache may be backed by a kvstore.Store so entries survive restarts;
// backend failures degrade to cache misses and are logged, never returned.
package ttlcache
