package pages

import (
	"context"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/feed"
	"github.com/tweetapp/tweetapp/pkg/reactive"
	"github.com/tweetapp/tweetapp/pkg/session"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

// PostDetail is the single-post surface with its comment form.
type PostDetail struct {
	Engine *feed.Engine

	postID       string
	commentDraft *reactive.Signal[string]
}

// NewPostDetail assembles the surface for one post.
func NewPostDetail(gateway api.Gateway, sess *session.Manager, toasts *toast.Notifier, postID string) *PostDetail {
	return &PostDetail{
		Engine: feed.NewEngine(gateway, feed.Single(postID),
			feed.WithIdentity(sess.User().Get),
			feed.WithToasts(toasts),
		),
		postID:       postID,
		commentDraft: reactive.NewSignal(""),
	}
}

// Load fetches the post.
func (d *PostDetail) Load(ctx context.Context) error {
	return d.Engine.Load(ctx)
}

// Post returns the current post, or false while it is absent.
func (d *PostDetail) Post() (api.Post, bool) {
	posts := d.Engine.Posts().Get()
	if len(posts) == 0 {
		return api.Post{}, false
	}
	return posts[0], true
}

// CommentDraft is the comment form input cell.
func (d *PostDetail) CommentDraft() *reactive.Signal[string] {
	return d.commentDraft
}

// SetCommentDraft updates the comment form input.
func (d *PostDetail) SetCommentDraft(text string) {
	d.commentDraft.Set(text)
}

// SubmitComment sends the draft through the engine and clears it when the
// attempt is accepted.
func (d *PostDetail) SubmitComment(ctx context.Context) bool {
	accepted := d.Engine.AddComment(ctx, d.postID, d.commentDraft.Get())
	if accepted {
		d.commentDraft.Set("")
	}
	return accepted
}

// ToggleLike delegates to the engine.
func (d *PostDetail) ToggleLike(ctx context.Context) bool {
	return d.Engine.ToggleLike(ctx, d.postID)
}

// Close tears the surface down. No engine cell updates after it returns.
func (d *PostDetail) Close() {
	d.Engine.Close()
}
