package backendcache

import (
	"context"
	"strings"
	"sync"

	"github.com/plusopinion/go-client-core/backend"
	"github.com/plusopinion/go-client-core/cache"
)

// Interface assertion to ensure CachedClient implements backend.Client
var _ backend.Client = (*CachedClient)(nil)

// CachedClient decorates a base backend client with caching for reads
// and table-scoped invalidation after writes.
type CachedClient struct {
	base          backend.Client
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	keyRegistry   *sync.Map // Track active cache keys for invalidation
}

// New creates a CachedClient that wraps the base client with caching.
func New(base backend.Client, cacheService cache.CacheService, keySerializer cache.KeySerializer) *CachedClient {
	return &CachedClient{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		keyRegistry:   &sync.Map{},
	}
}

// Select retrieves matching rows through the cache. Repeated reads with
// the same table and filters are served from the cached result until a
// mutation on the table invalidates it.
func (c *CachedClient) Select(ctx context.Context, table string, filters ...backend.Filter) ([]backend.Record, error) {
	key := c.keySerializer.SerializeKey("Select", normalizeTable(table), filters)
	c.trackKey(ctx, key)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]backend.Record, error) {
		return c.base.Select(ctx, table, filters...)
	})
}

// Insert passes through to the base client and invalidates the table's
// cached reads on success.
func (c *CachedClient) Insert(ctx context.Context, table string, rec backend.Record) (backend.Record, error) {
	result, err := c.base.Insert(ctx, table, rec)
	if err == nil {
		c.InvalidateTable(ctx, table)
	}
	return result, err
}

// Update passes through to the base client and invalidates the table's
// cached reads on success.
func (c *CachedClient) Update(ctx context.Context, table string, rec backend.Record, filters ...backend.Filter) ([]backend.Record, error) {
	result, err := c.base.Update(ctx, table, rec, filters...)
	if err == nil {
		c.InvalidateTable(ctx, table)
	}
	return result, err
}

// Delete passes through to the base client and invalidates the table's
// cached reads on success.
func (c *CachedClient) Delete(ctx context.Context, table string, filters ...backend.Filter) error {
	err := c.base.Delete(ctx, table, filters...)
	if err == nil {
		c.InvalidateTable(ctx, table)
	}
	return err
}

// RPC passes through uncached. Procedures may mutate arbitrary tables,
// so callers that know a procedure's write set invalidate explicitly
// via InvalidateTable.
func (c *CachedClient) RPC(ctx context.Context, proc string, payload backend.Record) (any, error) {
	return c.base.RPC(ctx, proc, payload)
}

// Upload passes through uncached.
func (c *CachedClient) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	return c.base.Upload(ctx, bucket, path, data, contentType)
}

// Subscribe passes through. Realtime events describe fresher state
// than any cached read, so subscribers see the base client directly.
func (c *CachedClient) Subscribe(ctx context.Context, table string, fn func(backend.Event), filters ...backend.Filter) (func(), error) {
	return c.base.Subscribe(ctx, table, fn, filters...)
}

// InvalidateTable removes every cached read for the given table.
func (c *CachedClient) InvalidateTable(ctx context.Context, table string) error {
	return c.invalidateByPrefix(ctx, readKeyPrefix(c.keySerializer, table))
}

// InvalidateScope removes every cached read registered under the scope.
func (c *CachedClient) InvalidateScope(ctx context.Context, scope string) error {
	var keys []string
	c.keyRegistry.Range(func(k, v any) bool {
		key := k.(string)
		if scopes, ok := v.(map[string]struct{}); ok {
			if _, tagged := scopes[scope]; tagged {
				keys = append(keys, key)
			}
		}
		return true
	})

	for _, key := range keys {
		c.keyRegistry.Delete(key)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cache.InvalidateKeys(ctx, keys)
}

// trackKey registers a cache key, together with any scopes on the
// context, for later invalidation.
func (c *CachedClient) trackKey(ctx context.Context, key string) {
	scopes := scopesFromContext(ctx)
	if len(scopes) == 0 {
		c.keyRegistry.LoadOrStore(key, map[string]struct{}{})
		return
	}

	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	if prev, loaded := c.keyRegistry.LoadOrStore(key, set); loaded {
		if prevSet, ok := prev.(map[string]struct{}); ok {
			merged := make(map[string]struct{}, len(prevSet)+len(set))
			for s := range prevSet {
				merged[s] = struct{}{}
			}
			for s := range set {
				merged[s] = struct{}{}
			}
			c.keyRegistry.Store(key, merged)
		}
	}
}

// invalidateByPrefix removes all tracked keys that start with prefix.
func (c *CachedClient) invalidateByPrefix(ctx context.Context, prefix string) error {
	var keys []string
	c.keyRegistry.Range(func(k, v any) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})

	for _, key := range keys {
		c.keyRegistry.Delete(key)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cache.InvalidateKeys(ctx, keys)
}

// readKeyPrefix reproduces the leading portion of every Select key for
// a table, so prefix invalidation lines up with key construction. The
// trailing separator keeps "post" from matching "post_likes" keys.
func readKeyPrefix(s cache.KeySerializer, table string) string {
	return s.SerializeKey("Select", normalizeTable(table)) + cache.KeySeparator
}
