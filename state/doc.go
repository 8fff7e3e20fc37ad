// Package state implements the client runtime's central state manager: a
// process-local key-value cache with optional per-key TTL, change
// notification, and durable mirroring of a whitelisted subset of keys.
//
// # Overview
//
// The Manager composes three concerns:
//
//   - a cache store: in-memory entries with absolute expiry timestamps,
//     expired lazily on read and by a periodic background sweep
//   - a subscription bus: per-key callbacks notified synchronously, in
//     registration order, on every Set and Invalidate
//   - a persistence adapter: keys in the persistable namespaces are
//     mirrored to a persist.Store as they change and reloaded on startup,
//     with entries whose TTL elapsed discarded during the load
//
// All operations are synchronous and safe for concurrent use. The Manager
// never performs network I/O; persistence failures are logged and the
// in-memory cache stays authoritative for the session.
//
// # Usage
//
//	store, _ := persist.OpenSQLite("state.db", "plusopinion_cache")
//	manager := state.NewManager(state.WithStore(store))
//	defer manager.Close()
//
//	unsubscribe := manager.Subscribe("user_profile", func(v any) {
//		// re-render profile views
//	})
//	defer unsubscribe()
//
//	manager.Set("user_profile", profile, 10*time.Minute)
//	cached := manager.Get("user_profile")
//
// # Expiry
//
// A single predicate decides expiry for both the lazy read path and the
// background sweep, so the two paths cannot diverge. Reading an expired key
// evicts it (notifying subscribers with nil) and returns nil; the sweep
// evicts expired entries that nobody re-reads, bounding memory growth.
package state
