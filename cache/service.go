package cache

import "context"

// KeySerializer builds a cache key from an operation name plus its arguments
// (tables, ids, filters). It must produce stable keys across calls so that
// identical queries land on the same entry.
type KeySerializer interface {
	SerializeKey(op string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from
// the source of truth (the remote backend).
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations used when
// decorating the backend client. It is exported so callers can supply
// alternate cache backends.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// GetOrFetch is a type-safe wrapper that provides generic support for
// CacheService. A cached value of the wrong dynamic type yields
// ErrInvalidResultType rather than a panic.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
