// Package cacheinfra adapts the sturdyc in-memory cache to the CacheService
// contract used by the query-cache layer.
package cacheinfra

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the settings for the sturdyc-backed query cache.
type Config struct {
	// Capacity is the maximum number of entries the cache can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards controls how many shards back the cache. More shards
	// improve concurrent access at a small memory cost. Must be greater
	// than 0.
	NumShards int

	// TTL is the default time-to-live for cached query results.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache
	// reaches capacity. Must be between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh enables refreshing hot entries before they expire.
	// Nil disables early refresh.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys that resolved to nothing, so
	// repeated lookups for absent records skip the network.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are scanned for.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig tunes stampede protection: hot entries are refreshed
// in the background inside the async window and synchronously past the
// sync threshold.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns settings suited to the client runtime: a few
// thousand query results, five-minute freshness, early refresh on.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
		EvictionInterval:     0,
	}
}

// ToSturdycOptions maps the optional parts of the Config onto sturdyc
// options. Capacity, NumShards, TTL, and EvictionPercentage are passed to
// sturdyc.New directly and are not included here.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate reports the first invalid configuration value, if any.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EarlyRefresh != nil {
		early := c.EarlyRefresh
		for field, d := range map[string]time.Duration{
			"EarlyRefresh.MinAsyncRefreshTime": early.MinAsyncRefreshTime,
			"EarlyRefresh.MaxAsyncRefreshTime": early.MaxAsyncRefreshTime,
			"EarlyRefresh.SyncRefreshTime":     early.SyncRefreshTime,
			"EarlyRefresh.RetryBaseDelay":      early.RetryBaseDelay,
		} {
			if d < 0 {
				return &ConfigError{Field: field, Message: "must be non-negative"}
			}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// sturdycService wraps a sturdyc client to provide read-through caching of
// backend query results.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates the configuration and builds the default
// CacheService implementation on top of sturdyc.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// validateFetchFn checks that fetchFn has the shape
// func(context.Context) (T, error) before any reflective call is made.
func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return &ConfigError{Field: "fetchFn", Message: "must be a function"}
	}
	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return &ConfigError{Field: "fetchFn", Message: "must have signature func(context.Context) (T, error)"}
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return &ConfigError{Field: "fetchFn", Message: "first parameter must be context.Context"}
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return &ConfigError{Field: "fetchFn", Message: "second return value must be error"}
	}

	return nil
}

// GetOrFetch implements cache.CacheService. On a miss the fetch function
// runs against the backend and the result is stored under key. The generic
// fetchFn is bridged through reflection because the interface is untyped.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	typedFetchFn := func(ctx context.Context) (any, error) {
		return callFetchFn(ctx, fetchFn)
	}

	return s.client.GetOrFetch(ctx, key, typedFetchFn)
}

// callFetchFn invokes any function matching FetchFn[T]. The signature was
// already validated, so reflection here cannot fail on shape.
func callFetchFn(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if rv := results[0]; rv.IsValid() && rv.CanInterface() {
		result = rv.Interface()
	}

	var err error
	if ev := results[1]; ev.IsValid() && !ev.IsNil() {
		err = ev.Interface().(error)
	}

	return result, err
}

// Delete implements cache.CacheService. Subsequent GetOrFetch calls for the
// key fetch fresh data from the backend.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix implements cache.CacheService. It removes every entry
// whose key starts with prefix, which is how mutations invalidate the
// query results they affect (all cached reads of a table, for example).
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys implements cache.CacheService for batch invalidation.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
