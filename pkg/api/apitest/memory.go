package apitest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tweetapp/tweetapp/pkg/api"
)

// softFault is a queued soft failure for one operation.
type softFault struct {
	errText string
	message string
}

// Memory is an in-memory api.Gateway. It simulates the backend the client
// expects: seeded posts and users, artificial latency, and a fixed
// authenticated identity whose likes and comments every mutation records.
//
// All state access is mutex-guarded and every returned post is a deep copy,
// so tests can hold results across further mutations.
type Memory struct {
	mu       sync.Mutex
	posts    []api.Post
	users    []api.User
	identity api.User

	latency time.Duration
	now     func() time.Time

	failNext map[string]error
	softNext map[string]softFault
	gates    map[string]chan struct{}
	calls    map[string]int

	// onPostChanged fires after any mutation lands, outside the lock.
	// The mock server's websocket hub hangs off this.
	onPostChanged func(postID string)
}

// MemoryOption configures NewMemory.
type MemoryOption func(*Memory)

// WithLatency sets the simulated network delay per call (default 0).
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.latency = d
	}
}

// WithIdentity sets the authenticated identity mutations are attributed to
// (default the seeded "bob").
func WithIdentity(u api.User) MemoryOption {
	return func(m *Memory) {
		m.identity = u
	}
}

// WithSeed replaces the default fixture posts.
func WithSeed(posts []api.Post) MemoryOption {
	return func(m *Memory) {
		m.posts = api.ClonePosts(posts)
	}
}

// WithClock sets the time source (default time.Now).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates a simulator seeded with the standard fixtures.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		posts:    SeedPosts(),
		users:    SeedUsers(),
		identity: api.User{UserID: "bob", Username: "bob"},
		now:      time.Now,
		failNext: make(map[string]error),
		softNext: make(map[string]softFault),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailNext makes the next call to op fail at the transport level with err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] = err
}

// SoftFailNext makes the next call to op return a failure envelope.
func (m *Memory) SoftFailNext(op, errText, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.softNext[op] = softFault{errText: errText, message: message}
}

// Gate blocks the next call to op until the returned release function runs.
// Used to freeze an in-flight request while a test inspects intermediate
// state.
func (m *Memory) Gate(op string) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[op] = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// Calls returns how many times op has been invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Posts returns a deep copy of the current store, for assertions.
func (m *Memory) Posts() []api.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return api.ClonePosts(m.posts)
}

// SetPosts replaces the store, for tests that need a server state that
// disagrees with the client's optimistic guess.
func (m *Memory) SetPosts(posts []api.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = api.ClonePosts(posts)
}

// Identity returns the authenticated mock identity.
func (m *Memory) Identity() api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// SetOnPostChanged registers the mutation broadcast hook.
func (m *Memory) SetOnPostChanged(fn func(postID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPostChanged = fn
}

// begin applies the simulated failure modes shared by every operation:
// call counting, gating, latency, and injected transport errors. A non-nil
// error is the transport failure to return.
func (m *Memory) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	gate := m.gates[op]
	if gate != nil {
		delete(m.gates, op)
	}
	fail := m.failNext[op]
	if fail != nil {
		delete(m.failNext, op)
	}
	latency := m.latency
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fail
}

// takeSoftFault pops a queued soft failure for op, if any.
func (m *Memory) takeSoftFault(op string) (softFault, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.softNext[op]
	if ok {
		delete(m.softNext, op)
	}
	return f, ok
}

// notifyChanged fires the broadcast hook outside the lock.
func (m *Memory) notifyChanged(postID string) {
	m.mu.Lock()
	fn := m.onPostChanged
	m.mu.Unlock()
	if fn != nil {
		fn(postID)
	}
}

// ListPosts implements api.Gateway.
func (m *Memory) ListPosts(ctx context.Context) (api.Envelope[[]api.Post], error) {
	if err := m.begin(ctx, api.OpListPosts); err != nil {
		return api.Envelope[[]api.Post]{}, &api.TransportError{Op: api.OpListPosts, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpListPosts); ok {
		return api.FailEnvelope[[]api.Post](f.errText, f.message), nil
	}
	return api.OkEnvelope(m.Posts(), "OK"), nil
}

// GetPost implements api.Gateway.
func (m *Memory) GetPost(ctx context.Context, id string) (api.Envelope[api.Post], error) {
	if err := m.begin(ctx, api.OpGetPost); err != nil {
		return api.Envelope[api.Post]{}, &api.TransportError{Op: api.OpGetPost, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpGetPost); ok {
		return api.FailEnvelope[api.Post](f.errText, f.message), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.PostID == id {
			return api.OkEnvelope(p.Clone(), "OK"), nil
		}
	}
	return api.FailEnvelope[api.Post]("Not found", "Post not found"), nil
}

// CreatePost implements api.Gateway.
func (m *Memory) CreatePost(ctx context.Context, content string) (api.Envelope[api.Post], error) {
	if err := m.begin(ctx, api.OpCreatePost); err != nil {
		return api.Envelope[api.Post]{}, &api.TransportError{Op: api.OpCreatePost, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpCreatePost); ok {
		return api.FailEnvelope[api.Post](f.errText, f.message), nil
	}
	if !api.ValidPostContent(content) {
		return api.FailEnvelope[api.Post]("Invalid content", "Post content is empty or too long"), nil
	}

	m.mu.Lock()
	post := api.Post{
		PostID:    "post-" + uuid.NewString(),
		UserID:    m.identity.UserID,
		Content:   content,
		CreatedAt: m.now(),
		Likes:     []api.Like{},
		Comments:  []api.Comment{},
	}
	m.posts = append([]api.Post{post}, m.posts...)
	out := post.Clone()
	m.mu.Unlock()

	m.notifyChanged(out.PostID)
	return api.OkEnvelope(out, "Created"), nil
}

// ToggleLike implements api.Gateway. It flips the mock identity's
// membership in the post's like set.
func (m *Memory) ToggleLike(ctx context.Context, id string) (api.Envelope[string], error) {
	if err := m.begin(ctx, api.OpToggleLike); err != nil {
		return api.Envelope[string]{}, &api.TransportError{Op: api.OpToggleLike, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpToggleLike); ok {
		return api.FailEnvelope[string](f.errText, f.message), nil
	}

	m.mu.Lock()
	var found bool
	for i := range m.posts {
		if m.posts[i].PostID != id {
			continue
		}
		found = true
		p := &m.posts[i]
		removed := false
		for j, l := range p.Likes {
			if l.UserID == m.identity.UserID {
				p.Likes = append(p.Likes[:j], p.Likes[j+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			p.Likes = append(p.Likes, api.Like{UserID: m.identity.UserID, Username: m.identity.Username})
		}
		break
	}
	m.mu.Unlock()

	if !found {
		return api.FailEnvelope[string]("Not found", "Post not found"), nil
	}
	m.notifyChanged(id)
	return api.OkEnvelope("ok", "Toggled"), nil
}

// AddComment implements api.Gateway.
func (m *Memory) AddComment(ctx context.Context, id, content string) (api.Envelope[string], error) {
	if err := m.begin(ctx, api.OpAddComment); err != nil {
		return api.Envelope[string]{}, &api.TransportError{Op: api.OpAddComment, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpAddComment); ok {
		return api.FailEnvelope[string](f.errText, f.message), nil
	}
	if !api.ValidCommentContent(content) {
		return api.FailEnvelope[string]("Invalid content", "Comment content is empty or too long"), nil
	}

	m.mu.Lock()
	var found bool
	for i := range m.posts {
		if m.posts[i].PostID != id {
			continue
		}
		found = true
		m.posts[i].Comments = append(m.posts[i].Comments, api.Comment{
			CommentID: "c-" + uuid.NewString(),
			UserID:    m.identity.UserID,
			Username:  m.identity.Username,
			Content:   content,
			CreatedAt: m.now(),
		})
		break
	}
	m.mu.Unlock()

	if !found {
		return api.FailEnvelope[string]("Not found", "Post not found"), nil
	}
	m.notifyChanged(id)
	return api.OkEnvelope("ok", "Comment added"), nil
}

// Login implements api.Gateway. Any username with a non-empty password is
// accepted; the returned token's claims match the requested username so the
// session layer decodes a real identity.
func (m *Memory) Login(ctx context.Context, req api.LoginRequest) (api.Envelope[string], error) {
	if err := m.begin(ctx, api.OpLogin); err != nil {
		return api.Envelope[string]{}, &api.TransportError{Op: api.OpLogin, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpLogin); ok {
		return api.FailEnvelope[string](f.errText, f.message), nil
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return api.FailEnvelope[string]("Invalid credentials", "Username and password are required"), nil
	}

	m.mu.Lock()
	user := api.User{UserID: req.Username, Username: req.Username}
	for _, u := range m.users {
		if u.Username == req.Username {
			user = u
			break
		}
	}
	m.identity = user
	exp := m.now().Add(time.Hour)
	m.mu.Unlock()

	return api.OkEnvelope(MintToken(user, exp), "Logged in"), nil
}

// Register implements api.Gateway.
func (m *Memory) Register(ctx context.Context, req api.RegisterRequest) (api.Envelope[string], error) {
	if err := m.begin(ctx, api.OpRegister); err != nil {
		return api.Envelope[string]{}, &api.TransportError{Op: api.OpRegister, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpRegister); ok {
		return api.FailEnvelope[string](f.errText, f.message), nil
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return api.FailEnvelope[string]("Invalid registration", "Username and password are required"), nil
	}

	m.mu.Lock()
	for _, u := range m.users {
		if u.Username == req.Username {
			m.mu.Unlock()
			return api.FailEnvelope[string]("Username taken", "That username is already registered"), nil
		}
	}
	user := api.User{UserID: req.Username, Username: req.Username}
	m.users = append(m.users, user)
	m.identity = user
	exp := m.now().Add(time.Hour)
	m.mu.Unlock()

	return api.OkEnvelope(MintToken(user, exp), "Registered"), nil
}

// SearchUsers implements api.Gateway: trimmed, case-insensitive substring
// match on username; queries shorter than two characters return an empty
// result rather than an error.
func (m *Memory) SearchUsers(ctx context.Context, query string) (api.Envelope[[]api.User], error) {
	if err := m.begin(ctx, api.OpSearchUsers); err != nil {
		return api.Envelope[[]api.User]{}, &api.TransportError{Op: api.OpSearchUsers, Err: err}
	}
	if f, ok := m.takeSoftFault(api.OpSearchUsers); ok {
		return api.FailEnvelope[[]api.User](f.errText, f.message), nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < 2 {
		return api.OkEnvelope([]api.User{}, "OK"), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	results := []api.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), q) {
			results = append(results, u)
		}
	}
	return api.OkEnvelope(results, "OK"), nil
}
