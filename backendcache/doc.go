// Package backendcache decorates a backend.Client with read-through
// caching.
//
// Select results are cached under keys derived from the table name and
// filter set. Every successful mutation (Insert, Update, Delete)
// invalidates all cached reads for its table, so callers never observe
// their own writes through a stale cache. RPC, Upload, and Subscribe
// pass through untouched.
//
// Reads can additionally be registered under scopes (see WithScope) so
// cross-table invalidation, like clearing a user's whole feed after a
// profile change, stays a one-liner.
package backendcache
