package feed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/reactive"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

// ErrClosed is returned by Load after Close. Mutations on a closed engine
// are refused the same way as any other inadmissible attempt.
var ErrClosed = errors.New("feed: engine closed")

// Engine manages one scoped view of the post collection. Construct one per
// surface; its cells are what the surface renders.
type Engine struct {
	gateway  api.Gateway
	scope    Scope
	identity func() *api.User
	toasts   *toast.Notifier
	log      *slog.Logger

	posts        *reactive.Signal[[]api.Post]
	loading      *reactive.Signal[bool]
	errorMessage *reactive.Signal[string]

	pendingLikes    *reactive.Map[string, bool]
	pendingComments *reactive.Map[string, bool]
	commentErrors   *reactive.Map[string, string]
	composerPending *reactive.Signal[bool]
	composerError   *reactive.Signal[string]
	onComposerReset func()

	// mu guards attempts and the pending test-and-set; the maps above are
	// the observable mirror, not the source of truth for admission.
	mu        sync.Mutex
	attempts  map[string]uint64
	likeBusy  map[string]bool
	cmntBusy  map[string]bool
	composing bool
	closed    bool

	wg sync.WaitGroup
}

// EngineOption configures NewEngine.
type EngineOption func(*Engine)

// WithIdentity sets where the engine reads the authenticated user from.
// Mutations are refused while it returns nil.
func WithIdentity(fn func() *api.User) EngineOption {
	return func(e *Engine) {
		e.identity = fn
	}
}

// WithToasts routes mutation outcomes to a notifier.
func WithToasts(n *toast.Notifier) EngineOption {
	return func(e *Engine) {
		e.toasts = n
	}
}

// WithEngineLogger sets the structured logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// OnComposerReset registers a callback fired after a post is created
// successfully, so the composer surface can clear its input.
func OnComposerReset(fn func()) EngineOption {
	return func(e *Engine) {
		e.onComposerReset = fn
	}
}

// NewEngine creates an engine over scope. Call Load to populate it.
func NewEngine(gateway api.Gateway, scope Scope, opts ...EngineOption) *Engine {
	e := &Engine{
		gateway:  gateway,
		scope:    scope,
		identity: func() *api.User { return nil },
		toasts:   toast.NewNotifier(),
		log:      slog.Default(),

		posts:           reactive.NewSignal([]api.Post{}),
		loading:         reactive.NewSignal(false),
		errorMessage:    reactive.NewSignal(""),
		pendingLikes:    reactive.NewMap[string, bool](),
		pendingComments: reactive.NewMap[string, bool](),
		commentErrors:   reactive.NewMap[string, string](),
		composerPending: reactive.NewSignal(false),
		composerError:   reactive.NewSignal(""),
		onComposerReset: func() {},

		attempts: make(map[string]uint64),
		likeBusy: make(map[string]bool),
		cmntBusy: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Posts returns the scoped post list cell, newest first.
func (e *Engine) Posts() *reactive.Signal[[]api.Post] {
	return e.posts
}

// Loading reports whether a Load is in flight.
func (e *Engine) Loading() *reactive.Signal[bool] {
	return e.loading
}

// ErrorMessage holds the last load failure, or "".
func (e *Engine) ErrorMessage() *reactive.Signal[string] {
	return e.errorMessage
}

// PendingLikes exposes which posts have a like toggle in flight.
func (e *Engine) PendingLikes() *reactive.Map[string, bool] {
	return e.pendingLikes
}

// PendingComments exposes which posts have a comment in flight.
func (e *Engine) PendingComments() *reactive.Map[string, bool] {
	return e.pendingComments
}

// CommentErrors holds per-post comment failures, keyed by post ID.
func (e *Engine) CommentErrors() *reactive.Map[string, string] {
	return e.commentErrors
}

// ComposerPending reports whether a post creation is in flight.
func (e *Engine) ComposerPending() *reactive.Signal[bool] {
	return e.composerPending
}

// ComposerError holds the last post creation failure, or "".
func (e *Engine) ComposerError() *reactive.Signal[string] {
	return e.composerError
}

// Load fetches the scoped posts, replacing the current list. Transport and
// soft failures land in ErrorMessage and leave the current list alone.
func (e *Engine) Load(ctx context.Context) error {
	if e.isClosed() {
		return ErrClosed
	}
	e.loading.Set(true)
	defer e.loading.Set(false)

	if single := e.scope.single(); single != "" {
		env, err := e.gateway.GetPost(ctx, single)
		if err != nil {
			e.errorMessage.Set("Failed to load post")
			return err
		}
		if !env.Ok() {
			e.errorMessage.Set(env.ErrorMessage("Post not found"))
			return nil
		}
		reactive.Batch(func() {
			e.errorMessage.Set("")
			e.posts.Set([]api.Post{env.Value()})
		})
		return nil
	}

	env, err := e.gateway.ListPosts(ctx)
	if err != nil {
		e.errorMessage.Set("Failed to load posts")
		return err
	}
	if !env.Ok() {
		e.errorMessage.Set(env.ErrorMessage("Failed to load posts"))
		return nil
	}

	posts := make([]api.Post, 0, len(env.Value()))
	for _, p := range env.Value() {
		if e.scope.Includes(p) {
			posts = append(posts, p)
		}
	}
	sortNewestFirst(posts)

	reactive.Batch(func() {
		e.errorMessage.Set("")
		e.posts.Set(posts)
	})
	return nil
}

// ApplyRemote adopts the server's current version of one post, typically in
// response to a live update notification. Posts with a mutation in flight
// are skipped; their own reconciliation will land shortly.
func (e *Engine) ApplyRemote(ctx context.Context, postID string) {
	e.mu.Lock()
	skip := e.closed || e.likeBusy[postID] || e.cmntBusy[postID]
	attempt := e.attempts[postID]
	e.mu.Unlock()
	if skip {
		return
	}

	env, err := e.gateway.GetPost(ctx, postID)
	if err != nil {
		e.log.Debug("remote refresh failed", "postId", postID, "err", err)
		return
	}
	if !env.Ok() {
		// The post is gone upstream.
		e.removePost(postID)
		return
	}
	if !e.attemptCurrent(postID, attempt) {
		return
	}
	e.upsertPost(env.Value())
}

// Quiesce blocks until every in-flight background mutation has settled.
func (e *Engine) Quiesce() {
	e.wg.Wait()
}

// Close detaches the engine from its surface: new loads and mutations are
// refused, then in-flight work is allowed to settle. After Close returns no
// goroutine owned by the engine writes to its cells again. Closing twice is
// harmless.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// attemptCurrent reports whether no newer mutation started for the post
// since attempt was observed.
func (e *Engine) attemptCurrent(postID string, attempt uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[postID] == attempt
}

// findPost returns a deep copy of the post, so callers can hold it as a
// rollback snapshot.
func (e *Engine) findPost(postID string) (api.Post, bool) {
	for _, p := range e.posts.Get() {
		if p.PostID == postID {
			return p.Clone(), true
		}
	}
	return api.Post{}, false
}

// mutatePost publishes a new list with fn applied to the matching post.
func (e *Engine) mutatePost(postID string, fn func(api.Post) api.Post) {
	e.posts.Update(func(current []api.Post) []api.Post {
		out := api.ClonePosts(current)
		for i := range out {
			if out[i].PostID == postID {
				out[i] = fn(out[i])
			}
		}
		return out
	})
}

// upsertPost replaces the post in place, or inserts it in order when the
// scope covers it and it is not yet present.
func (e *Engine) upsertPost(post api.Post) {
	if !e.scope.Includes(post) {
		return
	}
	e.posts.Update(func(current []api.Post) []api.Post {
		out := api.ClonePosts(current)
		for i := range out {
			if out[i].PostID == post.PostID {
				out[i] = post.Clone()
				return out
			}
		}
		out = append(out, post.Clone())
		sortNewestFirst(out)
		return out
	})
}

func (e *Engine) removePost(postID string) {
	e.posts.Update(func(current []api.Post) []api.Post {
		out := make([]api.Post, 0, len(current))
		for _, p := range current {
			if p.PostID != postID {
				out = append(out, p.Clone())
			}
		}
		return out
	})
}

func sortNewestFirst(posts []api.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
