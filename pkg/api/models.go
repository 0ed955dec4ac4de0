package api

import (
	"strings"
	"time"
)

// Content limits enforced before any network call.
const (
	MaxPostContentLen    = 280
	MaxCommentContentLen = 500
)

// User identifies an account: the subject of likes, comments and search
// results.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Like records one user's like on a post. A user appears at most once in a
// post's like set.
type Like struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Comment is an entry in a post's append-only comment sequence. CommentID is
// optional; position in the sequence is the authoritative identity.
type Comment struct {
	CommentID string    `json:"commentId,omitempty"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is the aggregate the client operates on. It is mutated only through
// like toggles and comment appends; CreatedAt never changes.
type Post struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     []Like    `json:"likes"`
	Comments  []Comment `json:"comments"`
}

// LikedBy reports whether userID is in the post's like set.
func (p Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy with independent Likes and Comments slices. Snapshots
// taken for rollback must not alias live state: a later in-place mutation
// would corrupt the rollback target.
func (p Post) Clone() Post {
	out := p
	out.Likes = make([]Like, len(p.Likes))
	copy(out.Likes, p.Likes)
	out.Comments = make([]Comment, len(p.Comments))
	copy(out.Comments, p.Comments)
	return out
}

// ClonePosts deep-copies a post collection for snapshotting.
func ClonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}

// ValidPostContent reports whether content is acceptable for a new post:
// non-empty after trimming and within the length limit.
func ValidPostContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && len(trimmed) <= MaxPostContentLen
}

// ValidCommentContent reports whether content is acceptable for a comment.
func ValidCommentContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && len(trimmed) <= MaxCommentContentLen
}

// LoginRequest carries the credentials for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the payload for POST /api/auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}
