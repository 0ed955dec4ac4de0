// Package api defines the tweetapp data model, the uniform response
// envelope, and the Gateway contract every backend implementation must
// satisfy, whether the real HTTP API or the in-memory simulator in apitest.
//
// # The envelope
//
// Every gateway call resolves to Envelope[T]:
//
//	{ "data": T | null, "error": string | null, "message": string }
//
// A nil Data is a failure even when the call itself succeeded (a "soft"
// failure, e.g. a business rule rejected the request). A non-nil error
// returned alongside the envelope means the call itself did not complete
// (transport failure). Callers must distinguish the two; the feed engine
// shows different messages for each.
//
// # Authentication
//
// The HTTP client attaches a bearer token from its TokenSource to every
// request outside /api/auth/. A 401 or 403 response fires the configured
// auth-error hook exactly once per request and yields ErrUnauthorized; the
// session layer owns the resulting logout and redirect.
package api
