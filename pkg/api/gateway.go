package api

import "context"

// Gateway operation names, used as metric labels, span names and fault keys.
const (
	OpListPosts   = "list_posts"
	OpGetPost     = "get_post"
	OpCreatePost  = "create_post"
	OpToggleLike  = "toggle_like"
	OpAddComment  = "add_comment"
	OpLogin       = "login"
	OpRegister    = "register"
	OpSearchUsers = "search_users"
)

// Gateway is the backend contract the client depends on. The optimistic
// update engine and the session manager are written against this interface
// only; the composition root decides whether it is backed by HTTP or by the
// in-memory simulator.
//
// A non-nil error is a transport failure: the call did not complete. A nil
// error with a nil envelope Data is a soft failure. ToggleLike is not
// idempotent, calling it twice round-trips the like state. Everything else
// except CreatePost is safe to retry.
type Gateway interface {
	// ListPosts returns every post, unordered.
	ListPosts(ctx context.Context) (Envelope[[]Post], error)

	// GetPost returns a single post by ID.
	GetPost(ctx context.Context, id string) (Envelope[Post], error)

	// CreatePost creates a post owned by the authenticated user.
	CreatePost(ctx context.Context, content string) (Envelope[Post], error)

	// ToggleLike flips the authenticated user's membership in the post's
	// like set.
	ToggleLike(ctx context.Context, id string) (Envelope[string], error)

	// AddComment appends a comment by the authenticated user.
	AddComment(ctx context.Context, id, content string) (Envelope[string], error)

	// Login exchanges credentials for a token.
	Login(ctx context.Context, req LoginRequest) (Envelope[string], error)

	// Register creates an account and returns a token.
	Register(ctx context.Context, req RegisterRequest) (Envelope[string], error)

	// SearchUsers returns users whose username matches query.
	SearchUsers(ctx context.Context, query string) (Envelope[[]User], error)
}
