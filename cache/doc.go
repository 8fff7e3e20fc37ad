// Package cache provides the read-through query cache used between the
// PlusOpinion client runtime and the remote backend.
//
// # Overview
//
// The package exports two main interfaces and their default implementations:
//
//   - CacheService: a generic caching interface for read-through operations
//   - KeySerializer: builds stable cache keys from operation names and
//     query arguments
//
// Route handlers read backend data through a cached client (see the
// backendcache package); on a miss the fetch function runs against the
// network and the result is stored under the serialized key. This is the
// network-vs-cache fetch policy of the runtime: cache first, network on
// miss, with TTL-bounded freshness.
//
// # Basic Usage
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("Select", "posts", filters)
//
//	posts, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) ([]backend.Record, error) {
//		return client.Select(ctx, query)
//	})
//
// # Key Serialization Strategy
//
// The default serializer uses reflection:
//
//   - basic types: direct string representation
//   - slices/arrays: recursive serialization of elements
//   - maps: pairs sorted by serialized key for deterministic output
//   - structs: exported fields as name:value pairs
//   - anything else: JSON fallback, degrading to type information on error
//
// Keys are stable across runs for value types. They are not meant to be
// shared across processes with differing struct layouts.
//
// # Error Handling
//
// The serializer prioritizes stability over precision: when JSON marshaling
// fails it falls back to type names rather than panicking, so cache
// operations continue even with awkward argument types. GetOrFetch returns
// ErrInvalidResultType when a key is shared by call sites expecting
// different types.
//
// # See Also
//
// The backendcache package decorates the backend client with this cache.
// The internal sturdyc adapter provides the default CacheService.
package cache
