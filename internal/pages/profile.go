package pages

import (
	"context"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/feed"
	"github.com/tweetapp/tweetapp/pkg/session"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

// Profile is one user's surface: their posts only, in their own collection
// independent of the home feed.
type Profile struct {
	Engine *feed.Engine

	userID string
	sess   *session.Manager
}

// NewProfile assembles the surface for userID's posts.
func NewProfile(gateway api.Gateway, sess *session.Manager, toasts *toast.Notifier, userID string) *Profile {
	return &Profile{
		Engine: feed.NewEngine(gateway, feed.ByAuthor(userID),
			feed.WithIdentity(sess.User().Get),
			feed.WithToasts(toasts),
		),
		userID: userID,
		sess:   sess,
	}
}

// Load populates the profile's posts.
func (p *Profile) Load(ctx context.Context) error {
	return p.Engine.Load(ctx)
}

// UserID returns whose profile this is.
func (p *Profile) UserID() string {
	return p.userID
}

// IsOwn reports whether the profile belongs to the signed-in user.
func (p *Profile) IsOwn() bool {
	user := p.sess.User().Get()
	return user != nil && user.UserID == p.userID
}

// ToggleLike delegates to the engine.
func (p *Profile) ToggleLike(ctx context.Context, postID string) bool {
	return p.Engine.ToggleLike(ctx, postID)
}

// AddComment delegates to the engine.
func (p *Profile) AddComment(ctx context.Context, postID, content string) bool {
	return p.Engine.AddComment(ctx, postID, content)
}

// Close tears the surface down. No engine cell updates after it returns.
func (p *Profile) Close() {
	p.Engine.Close()
}
