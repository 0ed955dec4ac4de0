// Package session is the single source of truth for "who is signed in".
//
// A Manager owns two reactive cells, the raw bearer token and the identity
// derived from it, and keeps them consistent: the current user is non-nil
// exactly when the token is present, well-formed and unexpired. Malformed
// or expired tokens never surface as errors; they degrade to the signed-out
// state and clear persisted storage.
//
//	store := session.NewFileStore(cfg.TokenDir)
//	mgr := session.NewManager(gateway, session.WithStore(store))
//	mgr.Hydrate() // once at startup
//
// The token persists as a single value under the fixed key "tweetapp-token";
// TokenStore is the localStorage analog with memory and file backends.
//
// Manager.TokenSource adapts the token cell to the api client's bearer
// lookup, and HandleAuthError is the target for the client's 401/403 hook:
// it clears the session and asks the navigator to return to the login
// surface with the interrupted URL preserved.
package session
