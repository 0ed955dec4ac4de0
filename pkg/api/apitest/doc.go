// Package apitest provides the in-memory backend simulator used in tests
// and by the tweetapp demo and mock-server commands.
//
// Memory implements api.Gateway over a seeded in-process store with
// configurable artificial latency, per-operation fault injection, call
// counters and completion gates: enough control to test every interleaving
// the optimistic update engine cares about.
//
//
//	mem := apitest.NewMemory()
//	mem.FailNext(api.OpToggleLike, errors.New("connection refused"))
//
//	release := mem.Gate(api.OpGetPost) // hold the reconciliation fetch
//	...
//	release()
//
// Server wraps a Memory in a chi router speaking the same envelope contract
// over HTTP, including the bearer-token requirement outside /api/auth/ and
// a /ws/updates websocket that broadcasts changed post IDs.
package apitest
