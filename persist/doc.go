// Package persist implements the durable storage boundary of the client
// runtime: a namespaced key-value store that mirrors a subset of the state
// cache across restarts.
//
// Entries carry their value as raw JSON together with a save timestamp and
// an optional absolute expiry. The invariant every implementation upholds is
// that LoadAll never returns an expired entry; expired rows are discarded
// (and deleted) during the load.
//
// Two implementations ship with the package:
//
//   - Memory: map-backed, for tests and ephemeral sessions
//   - SQLiteStore: a bun-managed SQLite table, last-write-wins, suitable
//     for a single client process per database file
//
// Concurrent writers to the same SQLite file are not coordinated beyond the
// database's own locking; the runtime assumes one process owns the store at
// a time.
package persist
