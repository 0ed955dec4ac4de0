package feed

import (
	"context"
	"strings"

	"github.com/tweetapp/tweetapp/pkg/api"
)

// ToggleLike optimistically flips the current user's like on a post. It
// returns whether the attempt was accepted: attempts are refused while
// signed out, while the post is unknown, or while a previous toggle on the
// same post is still in flight.
func (e *Engine) ToggleLike(ctx context.Context, postID string) bool {
	user := e.identity()
	if user == nil {
		return false
	}
	snapshot, ok := e.findPost(postID)
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.closed || e.likeBusy[postID] {
		e.mu.Unlock()
		return false
	}
	e.likeBusy[postID] = true
	e.attempts[postID]++
	attempt := e.attempts[postID]
	e.mu.Unlock()

	e.pendingLikes.SetKey(postID, true)
	e.mutatePost(postID, func(p api.Post) api.Post {
		return toggleUserLike(p, *user)
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.likeBusy, postID)
			e.mu.Unlock()
			e.pendingLikes.RemoveKey(postID)
		}()

		env, err := e.gateway.ToggleLike(ctx, postID)
		if err != nil {
			e.log.Warn("like toggle failed", "postId", postID, "err", err)
			e.rollback(postID, attempt, snapshot)
			e.toasts.Error("Failed to update like")
			return
		}
		if !env.Ok() {
			e.rollback(postID, attempt, snapshot)
			e.toasts.Error(env.ErrorMessage("Failed to update like"))
			return
		}
		e.reconcile(ctx, postID, attempt)
	}()
	return true
}

// AddComment submits a comment by the current user. Unlike the like toggle
// there is no local guess: the comment appears when the post is re-fetched
// after the server accepts it. Invalid content is refused before any network
// traffic, with the reason published in CommentErrors.
func (e *Engine) AddComment(ctx context.Context, postID, content string) bool {
	user := e.identity()
	if user == nil {
		return false
	}
	content = strings.TrimSpace(content)
	if !api.ValidCommentContent(content) {
		e.commentErrors.SetKey(postID, "Comments must be 1 to 500 characters")
		return false
	}
	if _, ok := e.findPost(postID); !ok {
		return false
	}

	e.mu.Lock()
	if e.closed || e.cmntBusy[postID] {
		e.mu.Unlock()
		return false
	}
	e.cmntBusy[postID] = true
	e.attempts[postID]++
	attempt := e.attempts[postID]
	e.mu.Unlock()

	e.pendingComments.SetKey(postID, true)
	e.commentErrors.RemoveKey(postID)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.cmntBusy, postID)
			e.mu.Unlock()
			e.pendingComments.RemoveKey(postID)
		}()

		env, err := e.gateway.AddComment(ctx, postID, content)
		if err != nil {
			e.log.Warn("comment failed", "postId", postID, "err", err)
			e.commentErrors.SetKey(postID, "Failed to add comment")
			return
		}
		if !env.Ok() {
			e.commentErrors.SetKey(postID, env.ErrorMessage("Failed to add comment"))
			return
		}
		e.reconcile(ctx, postID, attempt)
	}()
	return true
}

// CreatePost submits new post content. The collection is untouched until
// the server answers: on success the returned post is inserted at the top
// (it is definitionally the newest) and the composer is asked to reset; on
// failure the collection is left unchanged. One creation at a time.
// Single-post scopes refuse: a detail surface has no composer, and a post
// created there could never join its collection.
func (e *Engine) CreatePost(ctx context.Context, content string) bool {
	user := e.identity()
	if user == nil {
		return false
	}
	if e.scope.single() != "" {
		return false
	}
	content = strings.TrimSpace(content)
	if !api.ValidPostContent(content) {
		e.composerError.Set("Posts must be 1 to 280 characters")
		return false
	}

	e.mu.Lock()
	if e.closed || e.composing {
		e.mu.Unlock()
		return false
	}
	e.composing = true
	e.mu.Unlock()

	e.composerPending.Set(true)
	e.composerError.Set("")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			e.composing = false
			e.mu.Unlock()
			e.composerPending.Set(false)
		}()

		env, err := e.gateway.CreatePost(ctx, content)
		if err != nil {
			e.log.Warn("post creation failed", "err", err)
			e.composerError.Set("Failed to create post")
			e.toasts.Error("Failed to create post")
			return
		}
		if !env.Ok() {
			msg := env.ErrorMessage("Failed to create post")
			e.composerError.Set(msg)
			e.toasts.Error(msg)
			return
		}

		e.upsertPost(env.Value())
		e.onComposerReset()
		e.toasts.Success("Post created")
	}()
	return true
}

// rollback restores the snapshot unless a newer mutation has started for
// the post since attempt was issued.
func (e *Engine) rollback(postID string, attempt uint64, snapshot api.Post) {
	if !e.attemptCurrent(postID, attempt) {
		e.log.Debug("discarding stale rollback", "postId", postID)
		return
	}
	e.mutatePost(postID, func(api.Post) api.Post {
		return snapshot.Clone()
	})
}

// reconcile replaces the optimistic guess with the server's version of the
// post. The fetch result is discarded when a newer mutation has started; a
// failed fetch leaves the confirmed guess in place.
func (e *Engine) reconcile(ctx context.Context, postID string, attempt uint64) {
	env, err := e.gateway.GetPost(ctx, postID)
	if err != nil || !env.Ok() {
		e.log.Debug("reconciliation fetch failed", "postId", postID, "err", err)
		return
	}
	if !e.attemptCurrent(postID, attempt) {
		e.log.Debug("discarding stale reconciliation", "postId", postID)
		return
	}
	e.upsertPost(env.Value())
}

// toggleUserLike flips the user's membership in the post's like set. The
// post is already a private copy; in-place slice edits are safe.
func toggleUserLike(p api.Post, user api.User) api.Post {
	for i, l := range p.Likes {
		if l.UserID == user.UserID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return p
		}
	}
	p.Likes = append(p.Likes, api.Like{UserID: user.UserID, Username: user.Username})
	return p
}
