package offline

import (
	"net/http"
	"sync"
)

// StoredResponse is the cacheable subset of an HTTP response.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Bucket is one named cache of responses keyed by request URL.
type Bucket interface {
	Match(key string) (StoredResponse, bool)
	Put(key string, resp StoredResponse)
	Delete(key string) bool
	Keys() []string
}

// Storage groups buckets by name. Opening a name that does not exist
// yet creates an empty bucket.
type Storage interface {
	Open(name string) Bucket
	Names() []string
	Drop(name string) bool
}

// MemoryStorage is an in-process Storage implementation.
type MemoryStorage struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{buckets: make(map[string]*memoryBucket)}
}

func (s *MemoryStorage) Open(name string) Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[name]
	if !ok {
		b = &memoryBucket{entries: make(map[string]StoredResponse)}
		s.buckets[name] = b
	}
	return b
}

func (s *MemoryStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	return names
}

func (s *MemoryStorage) Drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[name]; !ok {
		return false
	}
	delete(s.buckets, name)
	return true
}

type memoryBucket struct {
	mu      sync.RWMutex
	entries map[string]StoredResponse
}

func (b *memoryBucket) Match(key string) (StoredResponse, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp, ok := b.entries[key]
	return resp, ok
}

func (b *memoryBucket) Put(key string, resp StoredResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = resp
}

func (b *memoryBucket) Delete(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[key]; !ok {
		return false
	}
	delete(b.entries, key)
	return true
}

func (b *memoryBucket) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	return keys
}
