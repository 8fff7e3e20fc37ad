package state

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plusopinion/go-client-core/persist"
)

// DefaultSweepInterval is how often the background sweep evicts expired
// entries that nobody re-read.
const DefaultSweepInterval = time.Minute

// Stats summarizes the manager's current footprint.
type Stats struct {
	Entries     int
	Subscribers int
	TTLEntries  int
}

// subscriber pairs a callback with the handle that identifies exactly this
// registration, so the same function can be subscribed twice independently.
type subscriber struct {
	id string
	fn func(any)
}

// Manager is the central state cache. Construct it with NewManager; the
// zero value is not usable.
type Manager struct {
	mu       sync.Mutex
	entries  map[string]any
	expiries map[string]time.Time
	subs     map[string][]subscriber

	store persist.Store
	log   *slog.Logger
	now   func() time.Time

	sweepEvery time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore attaches a durable store for the persistable key namespaces.
// Without one the manager is memory-only.
func WithStore(store persist.Store) Option {
	return func(m *Manager) { m.store = store }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithSweepInterval overrides how often expired entries are swept.
// A non-positive interval disables the sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweepEvery = d }
}

// WithClock substitutes the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager, seeds it from the durable store (discarding
// entries whose TTL already elapsed), and starts the background sweep.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		entries:    make(map[string]any),
		expiries:   make(map[string]time.Time),
		subs:       make(map[string][]subscriber),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadFromStore()

	if m.sweepEvery > 0 {
		go m.sweepLoop()
	}

	return m
}

// Get returns the cached value for key, or nil when the key is absent or
// its TTL elapsed. Reading an expired key evicts it as a side effect and
// notifies subscribers with nil.
func (m *Manager) Get(key string) any {
	m.mu.Lock()
	if m.expiredLocked(key, m.now()) {
		m.mu.Unlock()
		m.Invalidate(key)
		return nil
	}
	value, ok := m.entries[key]
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return value
}

// Set stores value under key, overwriting any previous entry. A positive
// ttl records an absolute expiry; otherwise the entry does not expire.
// Keys in a persistable namespace are mirrored to the durable store, and
// subscribers of the key are notified with the new value.
func (m *Manager) Set(key string, value any, ttl time.Duration) {
	now := m.now()

	m.mu.Lock()
	m.entries[key] = value
	if ttl > 0 {
		m.expiries[key] = now.Add(ttl)
	} else {
		delete(m.expiries, key)
	}
	expiresAt := m.expiries[key]
	m.mu.Unlock()

	if m.store != nil && Persistable(key) {
		m.persist(key, value, now, expiresAt)
	}

	m.notify(key, value)
}

// Invalidate removes the entry for key, its TTL record, and its durable
// mirror, then notifies subscribers with nil.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	delete(m.expiries, key)
	m.mu.Unlock()

	if m.store != nil && Persistable(key) {
		if err := m.store.Delete(context.Background(), key); err != nil {
			m.log.Warn("failed to remove persisted entry", "key", key, "error", err)
		}
	}

	m.notify(key, nil)
}

// ClearAll empties the cache and wipes every durably mirrored entry.
// Subscriptions are left intact.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	m.entries = make(map[string]any)
	m.expiries = make(map[string]time.Time)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Wipe(context.Background()); err != nil {
			m.log.Warn("failed to wipe persisted state", "error", err)
		}
	}
}

// Subscribe registers fn for change notifications on key and returns an
// unsubscribe closure that removes exactly this registration.
func (m *Manager) Subscribe(key string, fn func(any)) func() {
	id := uuid.NewString()

	m.mu.Lock()
	m.subs[key] = append(m.subs[key], subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		subs := m.subs[key]
		for i, s := range subs {
			if s.id == id {
				m.subs[key] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(m.subs[key]) == 0 {
			delete(m.subs, key)
		}
	}
}

// Stats reports entry, subscriber, and TTL-bearing entry counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, subs := range m.subs {
		total += len(subs)
	}
	return Stats{
		Entries:     len(m.entries),
		Subscribers: total,
		TTLEntries:  len(m.expiries),
	}
}

// Close stops the background sweep. The manager remains usable afterwards;
// only lazy expiry applies.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// expiredLocked is the single expiry predicate shared by the lazy read path
// and the background sweep. Callers must hold m.mu.
func (m *Manager) expiredLocked(key string, now time.Time) bool {
	expiry, ok := m.expiries[key]
	return ok && now.After(expiry)
}

// notify invokes every subscriber of key with value, synchronously and in
// registration order. A panicking callback is logged and must not stop the
// remaining subscribers. Callbacks run outside the manager lock so they may
// call back into the manager.
func (m *Manager) notify(key string, value any) {
	m.mu.Lock()
	subs := make([]subscriber, len(m.subs[key]))
	copy(subs, m.subs[key])
	m.mu.Unlock()

	for _, s := range subs {
		m.invoke(key, s, value)
	}
}

func (m *Manager) invoke(key string, s subscriber, value any) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("subscriber callback panicked", "key", key, "panic", r)
		}
	}()
	s.fn(value)
}

// persist mirrors a single entry to the durable store. Failure is logged
// and swallowed: the in-memory cache stays valid for the session.
func (m *Manager) persist(key string, value any, savedAt, expiresAt time.Time) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.log.Warn("failed to encode entry for persistence", "key", key, "error", err)
		return
	}

	entry := persist.Entry{Key: key, Value: raw, SavedAt: savedAt, ExpiresAt: expiresAt}
	if err := m.store.Save(context.Background(), entry); err != nil {
		m.log.Warn("failed to persist entry", "key", key, "error", err)
	}
}

// loadFromStore seeds the cache from the durable store. The store already
// drops expired entries during LoadAll; remaining TTLs are carried over.
func (m *Manager) loadFromStore() {
	if m.store == nil {
		return
	}

	entries, err := m.store.LoadAll(context.Background())
	if err != nil {
		m.log.Warn("failed to load persisted state", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		var value any
		if err := json.Unmarshal(e.Value, &value); err != nil {
			m.log.Warn("failed to decode persisted entry", "key", e.Key, "error", err)
			continue
		}
		m.entries[e.Key] = value
		if !e.ExpiresAt.IsZero() {
			m.expiries[e.Key] = e.ExpiresAt
		}
	}
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep evicts every expired entry, including those never re-read, so
// TTL-bearing entries cannot accumulate unbounded.
func (m *Manager) sweep() {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for key := range m.expiries {
		if m.expiredLocked(key, now) {
			expired = append(expired, key)
		}
	}
	m.mu.Unlock()

	for _, key := range expired {
		m.Invalidate(key)
	}
}
