package persist

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Entry is the durable mirror of a cache entry: the JSON-encoded value, the
// time it was saved, and an optional absolute expiry. A zero ExpiresAt means
// the entry never expires.
type Entry struct {
	Key       string
	Value     json.RawMessage
	SavedAt   time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store is the durable storage boundary. Implementations are namespaced:
// two stores with different namespaces over the same backing never see each
// other's entries.
type Store interface {
	// Save writes or overwrites an entry. Last write wins.
	Save(ctx context.Context, e Entry) error

	// Delete removes the entry for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Load returns the entry for key. The second return is false when
	// the key is absent or its TTL has elapsed; an expired entry is
	// dropped from storage.
	Load(ctx context.Context, key string) (Entry, bool, error)

	// LoadAll returns every live entry in the namespace. Entries whose TTL
	// has elapsed are dropped from storage and never returned.
	LoadAll(ctx context.Context) ([]Entry, error)

	// Wipe removes every entry in the namespace.
	Wipe(ctx context.Context) error
}

// Memory is an in-process Store used in tests and for sessions that opt out
// of durability. The zero value is not usable; call NewMemory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = e
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if e.Expired(m.now()) {
		delete(m.entries, key)
		return Entry{}, false, nil
	}
	return e, true, nil
}

// LoadAll implements Store.
func (m *Memory) LoadAll(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]Entry, 0, len(m.entries))
	for key, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, key)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Wipe implements Store.
func (m *Memory) Wipe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

// Len reports the number of stored entries, expired or not. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Has reports whether key is present, regardless of expiry. Test helper.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
