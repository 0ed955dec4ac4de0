package pages

import (
	"context"
	"sync"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/reactive"
	"github.com/tweetapp/tweetapp/pkg/session"
)

// Login is the sign-in and registration surface. On success it navigates to
// the return URL the auth redirect recorded, or home.
type Login struct {
	sess     *session.Manager
	navigate func(path string)

	returnURL    string
	pending      *reactive.Signal[bool]
	errorMessage *reactive.Signal[string]

	mu   sync.Mutex
	busy bool
}

// NewLogin assembles the surface. returnURL may be empty.
func NewLogin(sess *session.Manager, navigate func(path string), returnURL string) *Login {
	if navigate == nil {
		navigate = func(string) {}
	}
	return &Login{
		sess:         sess,
		navigate:     navigate,
		returnURL:    returnURL,
		pending:      reactive.NewSignal(false),
		errorMessage: reactive.NewSignal(""),
	}
}

// Pending reports whether an auth request is in flight.
func (l *Login) Pending() *reactive.Signal[bool] {
	return l.pending
}

// ErrorMessage holds the last auth failure, or "".
func (l *Login) ErrorMessage() *reactive.Signal[string] {
	return l.errorMessage
}

// Submit signs in with the given credentials. A second submission while one
// is in flight is refused.
func (l *Login) Submit(ctx context.Context, username, password string) bool {
	return l.run(func() (api.Envelope[string], error) {
		return l.sess.Login(ctx, api.LoginRequest{Username: username, Password: password})
	}, "Login failed")
}

// Register creates an account and signs in.
func (l *Login) Register(ctx context.Context, req api.RegisterRequest) bool {
	return l.run(func() (api.Envelope[string], error) {
		return l.sess.Register(ctx, req)
	}, "Registration failed")
}

func (l *Login) run(attempt func() (api.Envelope[string], error), fallback string) bool {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return false
	}
	l.busy = true
	l.mu.Unlock()

	l.pending.Set(true)
	defer func() {
		l.mu.Lock()
		l.busy = false
		l.mu.Unlock()
		l.pending.Set(false)
	}()

	env, err := attempt()
	if err != nil {
		l.errorMessage.Set(fallback)
		return false
	}
	if !env.Ok() {
		l.errorMessage.Set(env.ErrorMessage(fallback))
		return false
	}

	l.errorMessage.Set("")
	target := l.returnURL
	if target == "" {
		target = "/"
	}
	l.navigate(target)
	return true
}
