package reactive

// Map wraps Signal[map[K]V] with copy-on-write convenience methods for
// keyed state, such as the per-post pending flags in the feed engine.
// The underlying map value is never mutated in place; every write publishes
// a fresh map so subscribers can hold snapshots safely.
type Map[K comparable, V any] struct {
	*Signal[map[K]V]
}

// NewMap creates a Map holding an empty map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{NewSignal(map[K]V{})}
}

// SetKey publishes a copy of the map with key set to value.
func (m *Map[K, V]) SetKey(key K, value V) {
	m.Update(func(cur map[K]V) map[K]V {
		next := make(map[K]V, len(cur)+1)
		for k, v := range cur {
			next[k] = v
		}
		next[key] = value
		return next
	})
}

// RemoveKey publishes a copy of the map without key. No-op when the key is
// absent.
func (m *Map[K, V]) RemoveKey(key K) {
	m.Update(func(cur map[K]V) map[K]V {
		if _, ok := cur[key]; !ok {
			return cur
		}
		next := make(map[K]V, len(cur))
		for k, v := range cur {
			if k != key {
				next[k] = v
			}
		}
		return next
	})
}

// GetKey returns the value for key and whether it is present.
func (m *Map[K, V]) GetKey(key K) (V, bool) {
	v, ok := m.Get()[key]
	return v, ok
}

// Len returns the number of keys.
func (m *Map[K, V]) Len() int {
	return len(m.Get())
}

// Clear publishes an empty map.
func (m *Map[K, V]) Clear() {
	m.Set(map[K]V{})
}
