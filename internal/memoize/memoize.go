// Package memoize provides a keyed store of lazily computed values.
// Computation runs at most once per entry; recomputation only happens after
// an explicit Delete or Set.
package memoize

import "sync"

type entry[V any] struct {
	once    sync.Once
	compute func() (V, error)
	value   V
	err     error
}

func (e *entry[V]) resolve() (V, error) {
	e.once.Do(func() {
		e.value, e.err = e.compute()
		e.compute = nil
	})
	return e.value, e.err
}

// Map memoizes values produced by a loader. Two overlapping Get calls for
// the same key share one computation; the second caller blocks on the first
// caller's result, including its error.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	load    func(K) (V, error)
	entries map[K]*entry[V]
}

func NewMap[K comparable, V any](load func(K) (V, error)) *Map[K, V] {
	return &Map[K, V]{
		load:    load,
		entries: make(map[K]*entry[V]),
	}
}

// Get returns the memoized value for key, computing it via the loader on
// first access. The entry lock is not held during computation.
func (m *Map[K, V]) Get(key K) (V, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		k := key
		e = &entry[V]{compute: func() (V, error) { return m.load(k) }}
		m.entries[key] = e
	}
	m.mu.Unlock()
	return e.resolve()
}

// Set installs a not-yet-evaluated computation, replacing any existing entry.
func (m *Map[K, V]) Set(key K, compute func() (V, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &entry[V]{compute: compute}
}

// Delete removes an entry. No-op if absent. An in-flight computation for the
// removed entry still completes for callers already awaiting it.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Has reports whether an entry exists, evaluated or not.
func (m *Map[K, V]) Has(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Keys returns a snapshot of the current keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
