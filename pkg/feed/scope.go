package feed

import "github.com/tweetapp/tweetapp/pkg/api"

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeAuthor
	scopeSingle
)

// Scope selects which posts an Engine manages.
type Scope struct {
	kind scopeKind
	id   string
}

// All covers every post. The main feed.
func All() Scope {
	return Scope{kind: scopeAll}
}

// ByAuthor covers the posts written by one user. Profile surfaces.
func ByAuthor(userID string) Scope {
	return Scope{kind: scopeAuthor, id: userID}
}

// Single covers exactly one post. The post detail surface.
func Single(postID string) Scope {
	return Scope{kind: scopeSingle, id: postID}
}

// Includes reports whether the scope covers p.
func (s Scope) Includes(p api.Post) bool {
	switch s.kind {
	case scopeAuthor:
		return p.UserID == s.id
	case scopeSingle:
		return p.PostID == s.id
	default:
		return true
	}
}

// single returns the post ID for a single-post scope, or "".
func (s Scope) single() string {
	if s.kind == scopeSingle {
		return s.id
	}
	return ""
}
