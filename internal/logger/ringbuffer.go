package logger

import "sync"

// RingBuffer is a fixed-capacity circular buffer safe for concurrent use.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Push appends item, dropping the oldest when full.
func (r *RingBuffer[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	if r.count < capacity {
		r.items[(r.start+r.count)%capacity] = item
		r.count++
		return
	}
	r.items[r.start] = item
	r.start = (r.start + 1) % capacity
}

// GetAll returns the items from oldest to newest.
func (r *RingBuffer[T]) GetAll() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.count)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Len returns the number of buffered items.
func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
