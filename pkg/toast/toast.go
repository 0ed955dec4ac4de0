// Package toast queues transient user notifications.
//
// A Notifier owns a reactive list of active toasts. Surfaces push entries
// through the level helpers and subscribe to Toasts to render them; each
// entry dismisses itself after its level's display duration.
package toast

import (
	"sync"
	"time"

	"github.com/tweetapp/tweetapp/pkg/reactive"
)

// Level classifies a toast for presentation.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Display durations per level. Errors linger a little longer.
const (
	successDuration = 4 * time.Second
	errorDuration   = 5 * time.Second
	infoDuration    = 4 * time.Second
	warningDuration = 4 * time.Second
)

// Toast is one visible notification.
type Toast struct {
	ID      uint64
	Level   Level
	Message string
}

// Notifier manages the active toast list. Safe for concurrent use; the
// optimistic update engine pushes from background goroutines.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	toasts *reactive.Signal[[]Toast]

	// scale multiplies display durations. Zero or negative disables
	// auto-dismiss entirely, which tests rely on.
	scale float64
}

// NotifierOption configures NewNotifier.
type NotifierOption func(*Notifier)

// WithDurationScale multiplies every display duration. Values at or below
// zero disable auto-dismiss.
func WithDurationScale(scale float64) NotifierOption {
	return func(n *Notifier) {
		n.scale = scale
	}
}

// NewNotifier creates an empty notifier.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		toasts: reactive.NewSignal([]Toast{}),
		scale:  1,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Toasts returns the active toast list cell, newest last.
func (n *Notifier) Toasts() *reactive.Signal[[]Toast] {
	return n.toasts
}

// Success queues a success toast.
func (n *Notifier) Success(message string) uint64 {
	return n.push(LevelSuccess, message, successDuration)
}

// Error queues an error toast.
func (n *Notifier) Error(message string) uint64 {
	return n.push(LevelError, message, errorDuration)
}

// Info queues an informational toast.
func (n *Notifier) Info(message string) uint64 {
	return n.push(LevelInfo, message, infoDuration)
}

// Warning queues a warning toast.
func (n *Notifier) Warning(message string) uint64 {
	return n.push(LevelWarning, message, warningDuration)
}

// Dismiss removes a toast by ID. Dismissing an unknown or already expired
// ID is a no-op.
func (n *Notifier) Dismiss(id uint64) {
	n.toasts.Update(func(current []Toast) []Toast {
		out := make([]Toast, 0, len(current))
		for _, t := range current {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	})
}

func (n *Notifier) push(level Level, message string, duration time.Duration) uint64 {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.mu.Unlock()

	n.toasts.Update(func(current []Toast) []Toast {
		out := make([]Toast, len(current), len(current)+1)
		copy(out, current)
		return append(out, Toast{ID: id, Level: level, Message: message})
	})

	if n.scale > 0 {
		time.AfterFunc(time.Duration(float64(duration)*n.scale), func() {
			n.Dismiss(id)
		})
	}
	return id
}
