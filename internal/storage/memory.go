// Package storage holds the per-run in-memory caches of the crawler.
package storage

import (
	"sync"
)

// MemoryStore is a concurrency-safe map that only grows. Entries are never
// replaced or evicted for the lifetime of the store, which is one crawl run.
type MemoryStore[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore[K comparable, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{entries: make(map[K]V)}
}

// Get returns the value stored under key.
func (m *MemoryStore[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// PutIfAbsent stores v unless key is already present, and returns the value
// that is stored afterwards.
func (m *MemoryStore[K, V]) PutIfAbsent(key K, v V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[key]; ok {
		return existing
	}
	m.entries[key] = v
	return v
}

// Len returns the number of entries.
func (m *MemoryStore[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
