package reactive

import (
	"runtime"
	"sync"
)

// cell is the type-erased view of a signal or computed used by the batch
// queue.
type cell interface {
	ID() uint64
	fire()
}

// batchState tracks nested Batch calls and queued notifications for one
// goroutine.
type batchState struct {
	depth   int
	pending []cell
}

// batchStates stores per-goroutine batch state. Batches on different
// goroutines are independent.
var batchStates sync.Map

// goroutineID extracts the current goroutine's ID from the runtime stack
// header ("goroutine <id> ..."). Implementation detail; never exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// queueInBatch queues c for notification if a batch is active on the calling
// goroutine. Reports whether the notification was queued.
func queueInBatch(c cell) bool {
	v, ok := batchStates.Load(goroutineID())
	if !ok {
		return false
	}
	state := v.(*batchState)
	if state.depth == 0 {
		return false
	}
	state.pending = append(state.pending, c)
	return true
}

// Batch groups signal updates inside fn into a single notification phase.
// Changed cells are deduplicated and their subscribers notified once, with
// the value current when the outermost batch completes. Batches nest.
func Batch(fn func()) {
	gid := goroutineID()

	v, _ := batchStates.LoadOrStore(gid, &batchState{})
	state := v.(*batchState)
	state.depth++

	defer func() {
		state.depth--
		if state.depth > 0 {
			return
		}
		pending := state.pending
		state.pending = nil
		batchStates.Delete(gid)

		seen := make(map[uint64]bool, len(pending))
		for _, c := range pending {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			c.fire()
		}
	}()

	fn()
}
