// Package reactive provides the reactive cells the tweetapp client state is
// built on: signals, derived values, and batched notification.
//
// A Signal is a thread-safe value container that notifies subscribers when
// its value changes. Unlike framework-embedded signal systems there is no
// implicit dependency tracking here: consumers subscribe explicitly and
// receive the new value on every change.
//
//	posts := reactive.NewSignal([]api.Post{})
//	unsub := posts.Subscribe(func(ps []api.Post) {
//	    render(ps)
//	})
//	defer unsub()
//
// # Single writer per cell
//
// Every cell has exactly one owning writer (an engine, a session manager, a
// notifier). Readers may call Get and Subscribe from any goroutine, but Set
// and Update must only be called by the owner. This rule is a convention,
// not enforced; it is what makes the per-entity pending guards in the feed
// engine cooperative rather than locked.
//
// # Batching
//
// Batch groups several updates into one notification phase:
//
//	reactive.Batch(func() {
//	    token.Set(tok)
//	    user.Set(&u)
//	})
//
// Subscribers are notified once per changed cell when the outermost batch
// completes, with the value current at that point.
package reactive
