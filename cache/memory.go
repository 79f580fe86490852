package cache

import (
	"sync"
	"time"
)

// Memory is an in-memory Store backed by sync.Map.
//
// Reads of an existing entry take no lock, which suits keys that are
// written once and read on every request.
type Memory[K comparable, V any] struct {
	entries sync.Map // K -> *entry[V]
	policy  Policy
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemory creates an in-memory store governed by policy.
func NewMemory[K comparable, V any](policy Policy, opts ...MemoryOption) *Memory[K, V] {
	o := memoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[K, V]{
		policy: policy,
		now:    o.now,
	}
}

// Get returns the value for key. Expired entries are removed lazily and
// reported as a miss.
func (m *Memory[K, V]) Get(key K) (V, bool) {
	var zero V

	raw, ok := m.entries.Load(key)
	if !ok {
		return zero, false
	}
	e := raw.(*entry[V])

	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		// Only drop the exact entry we observed; a concurrent Set may have
		// already replaced it.
		m.entries.CompareAndDelete(key, e)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (m *Memory[K, V]) Set(key K, value V) {
	m.entries.Store(key, &entry[V]{
		value:     value,
		expiresAt: m.policy.ExpiresAt(m.now()),
	})
}

// Delete removes key. Idempotent.
func (m *Memory[K, V]) Delete(key K) {
	m.entries.Delete(key)
}

// Len returns the number of entries that have not expired.
func (m *Memory[K, V]) Len() int {
	return len(m.Keys())
}

// Keys returns the keys of all entries that have not expired.
// Order is unspecified.
func (m *Memory[K, V]) Keys() []K {
	now := m.now()
	var keys []K
	m.entries.Range(func(k, v any) bool {
		e := v.(*entry[V])
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			keys = append(keys, k.(K))
		}
		return true
	})
	return keys
}

// Ensure Memory implements Store
var _ Store[string, int] = (*Memory[string, int])(nil)
