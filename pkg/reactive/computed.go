package reactive

import (
	"sync"
	"sync/atomic"
)

// Computed is a cached derivation over one or more source cells. The value
// recomputes lazily: invalidation happens when any source changes, the
// computation runs on the next read. Computed cells can be subscribed to
// like signals, so derivations chain.
type Computed[T any] struct {
	id      uint64
	compute func() T

	mu    sync.RWMutex
	value T

	// valid is false when a source changed since the last computation.
	valid atomic.Bool

	equal func(T, T) bool

	subMu sync.RWMutex
	subs  []subscriber[T]

	unwatch []func()
}

// NewComputed creates a computed cell deriving from the given sources.
// Sources are explicit because this package does no implicit read tracking.
// The computation does not run until the first Get.
func NewComputed[T any](compute func() T, sources ...Source) *Computed[T] {
	c := &Computed[T]{
		id:      nextID(),
		compute: compute,
	}
	for _, src := range sources {
		c.unwatch = append(c.unwatch, src.onChange(c.invalidate))
	}
	return c
}

// Get returns the derived value, recomputing it if a source changed.
func (c *Computed[T]) Get() T {
	if !c.valid.Load() {
		c.recompute()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Subscribe registers fn to run with the freshly derived value whenever a
// source change produced a different result.
func (c *Computed[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	sub := subscriber[T]{id: nextID(), fn: fn}

	c.subMu.Lock()
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, existing := range c.subs {
			if existing.id == sub.id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// WithEquals configures a custom equality function and returns the cell.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// ID returns the unique identifier of this cell.
func (c *Computed[T]) ID() uint64 {
	return c.id
}

// Dispose detaches the cell from its sources. Further source changes no
// longer invalidate it.
func (c *Computed[T]) Dispose() {
	for _, fn := range c.unwatch {
		fn()
	}
	c.unwatch = nil
}

// invalidate marks the cached value stale and schedules notification.
func (c *Computed[T]) invalidate() {
	if c.valid.CompareAndSwap(true, false) {
		if queueInBatch(c) {
			return
		}
		c.fire()
	}
}

// fire recomputes and, if the result changed, notifies subscribers.
func (c *Computed[T]) fire() {
	if !c.recompute() {
		return
	}

	c.subMu.RLock()
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	value := c.Get()
	for _, sub := range subs {
		sub.fn(value)
	}
}

// recompute runs the computation and stores the result. Reports whether the
// value changed.
func (c *Computed[T]) recompute() bool {
	newValue := c.compute()
	c.valid.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.equals(c.value, newValue) {
		return false
	}
	c.value = newValue
	return true
}

// onChange implements Source so computeds can feed other computeds.
func (c *Computed[T]) onChange(fn func()) (unwatch func()) {
	return c.Subscribe(func(T) { fn() })
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}
