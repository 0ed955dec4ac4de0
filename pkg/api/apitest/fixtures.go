package apitest

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/tweetapp/tweetapp/pkg/api"
)

var _ api.Gateway = (*Memory)(nil)

// SeedPosts returns the standard fixture feed: two posts with distinct
// timestamps, one carrying a like and a comment.
func SeedPosts() []api.Post {
	now := time.Now()
	return []api.Post{
		{
			PostID:    "post-1",
			UserID:    "bob",
			Content:   "Hello world! This is the first seeded post.",
			CreatedAt: now.Add(-time.Hour),
			Likes:     []api.Like{{UserID: "jane", Username: "jane"}},
			Comments: []api.Comment{{
				CommentID: "c1",
				UserID:    "jane",
				Username:  "jane",
				Content:   "Nice post!",
				CreatedAt: now.Add(-45 * time.Minute),
			}},
		},
		{
			PostID:    "post-2",
			UserID:    "alex",
			Content:   "Another seeded post for testing likes and comments.",
			CreatedAt: now.Add(-30 * time.Minute),
			Likes:     []api.Like{},
			Comments:  []api.Comment{},
		},
	}
}

// SeedUsers returns the standard fixture accounts.
func SeedUsers() []api.User {
	return []api.User{
		{UserID: "bob", Username: "bob"},
		{UserID: "jane", Username: "jane"},
		{UserID: "alex", Username: "alex"},
		{UserID: "alan", Username: "alan"},
	}
}

// MintToken builds an unsigned three-segment token whose middle segment
// carries the claims the session layer decodes. The payload segment is
// unpadded URL-safe base64, which exercises the client's re-padding path.
func MintToken(user api.User, exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims, _ := json.Marshal(map[string]any{
		"userId":   user.UserID,
		"username": user.Username,
		"exp":      exp.Unix(),
	})
	payload := base64.RawURLEncoding.EncodeToString(claims)

	return header + "." + payload + ".mock"
}
