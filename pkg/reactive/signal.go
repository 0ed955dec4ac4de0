package reactive

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// globalIDCounter is the source of unique IDs for all cells.
var globalIDCounter uint64

// nextID returns the next unique cell ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// Source is any cell a Computed can derive from.
// Implemented by Signal and Computed.
type Source interface {
	// ID returns the unique identifier of the cell.
	ID() uint64

	onChange(fn func()) (unwatch func())
}

// subscriber pairs a subscription ID with its callback.
type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Signal is a reactive value container. Reads and writes are safe from any
// goroutine; see the package documentation for the single-writer rule.
type Signal[T any] struct {
	id uint64

	mu    sync.RWMutex
	value T

	// equal decides whether a write changed the value. Nil means
	// defaultEquals.
	equal func(T, T) bool

	subMu sync.RWMutex
	subs  []subscriber[T]
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		id:    nextID(),
		value: initial,
	}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek returns the current value. It is an alias for Get kept so call sites
// can state "read without reacting" intent explicitly.
func (s *Signal[T]) Peek() T {
	return s.Get()
}

// Set replaces the value and notifies subscribers if it changed.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Update atomically applies fn to the current value. Subscribers are
// notified if the result differs from the previous value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	newValue := fn(oldValue)
	changed := !s.equals(oldValue, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Subscribe registers fn to run with the new value after every change.
// The returned function removes the subscription; it is safe to call more
// than once.
func (s *Signal[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	sub := subscriber[T]{id: nextID(), fn: fn}

	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.subs {
			if existing.id == sub.id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// WithEquals configures a custom equality function and returns the signal.
// Useful when reflect.DeepEqual is too expensive or has wrong semantics for
// the value type.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier of this signal.
func (s *Signal[T]) ID() uint64 {
	return s.id
}

// notify fires subscribers, or queues the signal when a batch is active on
// the calling goroutine.
func (s *Signal[T]) notify() {
	if queueInBatch(s) {
		return
	}
	s.fire()
}

// fire reads the current value and invokes every subscriber with it.
// Subscribers run outside the locks, in subscription order.
func (s *Signal[T]) fire() {
	s.subMu.RLock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	value := s.Get()
	for _, sub := range subs {
		sub.fn(value)
	}
}

// onChange implements Source for Computed dependencies.
func (s *Signal[T]) onChange(fn func()) (unwatch func()) {
	return s.Subscribe(func(T) { fn() })
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for the common scalar types and falls back to
// reflect.DeepEqual for slices, maps and structs.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case uint64:
		return av == any(b).(uint64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
