package util

import "sync"

// RingBuffer keeps the last capacity items pushed into it; writes past
// capacity evict the oldest item. Safe for concurrent use.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	size  int
}

// NewRingBuffer creates a buffer holding at most capacity items.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Push stores item, evicting the oldest entry when the buffer is full.
func (r *RingBuffer[T]) Push(item T) {
	r.mu.Lock()
	r.items[(r.start+r.size)%len(r.items)] = item
	if r.size == len(r.items) {
		r.start = (r.start + 1) % len(r.items)
	} else {
		r.size++
	}
	r.mu.Unlock()
}

// Snapshot copies the stored items, oldest first.
func (r *RingBuffer[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Len reports how many items are stored.
func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
