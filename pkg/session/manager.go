package session

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/reactive"
)

// Manager owns the session state: the raw bearer token and the identity
// decoded from it. Both are published as reactive cells so surfaces can
// subscribe to sign-in and sign-out transitions. The two cells always move
// together inside a batch; observers never see a token without its user or
// the reverse.
type Manager struct {
	gateway  api.Gateway
	store    TokenStore
	log      *slog.Logger
	now      func() time.Time
	navigate func(path string)

	token *reactive.Signal[string]
	user  *reactive.Signal[*api.User]
}

// Option configures NewManager.
type Option func(*Manager)

// WithStore sets where the token persists. Default is an in-memory store.
func WithStore(store TokenStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithClock sets the time source used for expiry checks. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithNavigator sets the function HandleAuthError uses to move the app to
// the login surface. Default is a no-op.
func WithNavigator(navigate func(path string)) Option {
	return func(m *Manager) {
		m.navigate = navigate
	}
}

// NewManager creates a signed-out manager. Call Hydrate once at startup to
// restore a persisted session.
func NewManager(gateway api.Gateway, opts ...Option) *Manager {
	m := &Manager{
		gateway:  gateway,
		store:    NewMemoryStore(),
		log:      slog.Default(),
		now:      time.Now,
		navigate: func(string) {},
		token:    reactive.NewSignal(""),
		user:     reactive.NewSignal[*api.User](nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns the bearer token cell. Empty string means signed out.
func (m *Manager) Token() *reactive.Signal[string] {
	return m.token
}

// User returns the identity cell. Nil means signed out.
func (m *Manager) User() *reactive.Signal[*api.User] {
	return m.user
}

// IsAuthenticated reports whether a valid session is active.
func (m *Manager) IsAuthenticated() bool {
	return m.user.Get() != nil
}

// Hydrate restores the session from the store. A stored token that no
// longer decodes, or has expired, is discarded from storage and the manager
// stays signed out.
func (m *Manager) Hydrate() {
	stored, err := m.store.Load()
	if err != nil {
		m.log.Warn("session restore failed", "err", err)
		return
	}
	if stored == "" {
		return
	}

	user, ok := decodeClaims(stored, m.now())
	if !ok {
		m.log.Info("discarding stale session token")
		if err := m.store.Clear(); err != nil {
			m.log.Warn("token clear failed", "err", err)
		}
		return
	}
	m.publish(stored, user)
}

// Login exchanges credentials for a token and, on success, adopts it as the
// active session. Soft failures and transport errors pass through untouched
// so the login surface can present them.
func (m *Manager) Login(ctx context.Context, req api.LoginRequest) (api.Envelope[string], error) {
	env, err := m.gateway.Login(ctx, req)
	if err != nil || !env.Ok() {
		return env, err
	}
	m.accept(env.Value())
	return env, nil
}

// Register creates an account and adopts the returned token, mirroring
// Login.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (api.Envelope[string], error) {
	env, err := m.gateway.Register(ctx, req)
	if err != nil || !env.Ok() {
		return env, err
	}
	m.accept(env.Value())
	return env, nil
}

// Logout clears the session unconditionally: storage, token cell and
// identity cell.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("token clear failed", "err", err)
	}
	m.publish("", nil)
}

// HandleAuthError is the target for the gateway's 401/403 hook. The server
// has rejected our credentials, so the session ends and the app returns to
// the login surface, carrying the interrupted location so it can resume
// after sign-in.
func (m *Manager) HandleAuthError(returnURL string) {
	m.log.Info("session rejected by server", "returnUrl", returnURL)
	m.Logout()

	target := "/login"
	if returnURL != "" {
		target += "?returnUrl=" + url.QueryEscape(returnURL)
	}
	m.navigate(target)
}

// TokenSource adapts the token cell to the api client's bearer lookup.
func (m *Manager) TokenSource() api.TokenSource {
	return managerTokens{m}
}

type managerTokens struct {
	m *Manager
}

func (t managerTokens) Token() string {
	return t.m.token.Get()
}

// accept adopts a freshly issued token. A token the server minted but we
// cannot decode is no session at all; it is dropped rather than half-adopted.
func (m *Manager) accept(token string) {
	user, ok := decodeClaims(token, m.now())
	if !ok {
		m.log.Warn("server issued an unreadable token")
		m.Logout()
		return
	}
	if err := m.store.Save(token); err != nil {
		m.log.Warn("token persist failed", "err", err)
	}
	m.publish(token, user)
}

// publish moves both cells together so no observer sees them disagree.
func (m *Manager) publish(token string, user *api.User) {
	reactive.Batch(func() {
		m.token.Set(token)
		m.user.Set(user)
	})
}
