package cache

import (
	"sync"
	"time"
)

// Memory is an in-memory map with per-item TTL and a size bound.
type Memory[V any] struct {
	mu       sync.RWMutex
	items    map[string]memoryItem[V]
	maxItems int
	now      func() time.Time
}

type memoryItem[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (i memoryItem[V]) expired(now time.Time) bool {
	return now.Sub(i.insertedAt) > i.ttl
}

// NewMemory creates a memory map holding at most maxItems entries.
func NewMemory[V any](maxItems int) *Memory[V] {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &Memory[V]{
		items:    make(map[string]memoryItem[V]),
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get returns the value for key unless it is absent or expired.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	var zero V
	if !ok || item.expired(m.now()) {
		return zero, false
	}
	return item.value, true
}

// Set stores value under key for ttl.
func (m *Memory[V]) Set(key string, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxItems {
		m.evictOldest()
	}
	m.items[key] = memoryItem[V]{value: value, insertedAt: m.now(), ttl: ttl}
}

// Delete removes key.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// evictOldest drops expired entries, then the oldest tenth if still full.
// Must be called with the lock held.
func (m *Memory[V]) evictOldest() {
	now := m.now()
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
		}
	}
	if len(m.items) < m.maxItems {
		return
	}

	toRemove := m.maxItems / 10
	if toRemove < 1 {
		toRemove = 1
	}
	for ; toRemove > 0; toRemove-- {
		var oldestKey string
		var oldest time.Time
		for key, item := range m.items {
			if oldestKey == "" || item.insertedAt.Before(oldest) {
				oldestKey, oldest = key, item.insertedAt
			}
		}
		delete(m.items, oldestKey)
	}
}
