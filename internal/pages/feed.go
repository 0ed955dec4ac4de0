package pages

import (
	"context"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/feed"
	"github.com/tweetapp/tweetapp/pkg/reactive"
	"github.com/tweetapp/tweetapp/pkg/session"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

// Feed is the home surface: the full post list plus the composer.
type Feed struct {
	Engine *feed.Engine

	composerText *reactive.Signal[string]
}

// NewFeed assembles the home surface.
func NewFeed(gateway api.Gateway, sess *session.Manager, toasts *toast.Notifier) *Feed {
	f := &Feed{
		composerText: reactive.NewSignal(""),
	}
	f.Engine = feed.NewEngine(gateway, feed.All(),
		feed.WithIdentity(sess.User().Get),
		feed.WithToasts(toasts),
		feed.OnComposerReset(func() { f.composerText.Set("") }),
	)
	return f
}

// Load populates the feed.
func (f *Feed) Load(ctx context.Context) error {
	return f.Engine.Load(ctx)
}

// ComposerText is the composer input cell.
func (f *Feed) ComposerText() *reactive.Signal[string] {
	return f.composerText
}

// SetComposerText updates the composer input.
func (f *Feed) SetComposerText(text string) {
	f.composerText.Set(text)
}

// SubmitPost sends the composer content through the engine. The composer
// clears itself once the creation settles successfully.
func (f *Feed) SubmitPost(ctx context.Context) bool {
	return f.Engine.CreatePost(ctx, f.composerText.Get())
}

// ToggleLike delegates to the engine.
func (f *Feed) ToggleLike(ctx context.Context, postID string) bool {
	return f.Engine.ToggleLike(ctx, postID)
}

// AddComment delegates to the engine.
func (f *Feed) AddComment(ctx context.Context, postID, content string) bool {
	return f.Engine.AddComment(ctx, postID, content)
}

// Close tears the surface down. No engine cell updates after it returns.
func (f *Feed) Close() {
	f.Engine.Close()
}
