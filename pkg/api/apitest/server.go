package apitest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tweetapp/tweetapp/pkg/api"
)

// updateMessage is the wire shape broadcast on /ws/updates.
type updateMessage struct {
	PostID string `json:"postId"`
}

// hub fans post-change notifications out to connected websocket clients.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]bool)}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = true
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// broadcast sends the changed post ID to every client, dropping connections
// that fail to write.
func (h *hub) broadcast(postID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteJSON(updateMessage{PostID: postID}); err != nil {
			c.Close()
			delete(h.conns, c)
		}
	}
}

// Server exposes a Memory over HTTP with the same envelope contract the
// real backend speaks, plus the /ws/updates broadcast channel. Intended for
// httptest in client tests and for the `tweetapp mock-server` command.
type Server struct {
	mem    *Memory
	hub    *hub
	router chi.Router
	log    *slog.Logger

	upgrader websocket.Upgrader
}

// ServerOption configures NewServer.
type ServerOption func(*Server)

// WithServerLogger sets the structured logger.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer wraps mem in an HTTP handler. It registers itself as the
// Memory's post-change listener to drive the websocket broadcast.
func NewServer(mem *Memory, opts ...ServerOption) *Server {
	s := &Server{
		mem: mem,
		hub: newHub(),
		log: slog.Default(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	mem.SetOnPostChanged(s.hub.broadcast)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/posts", s.handleListPosts)
			r.Post("/posts", s.handleCreatePost)
			r.Get("/posts/{id}", s.handleGetPost)
			r.Put("/posts/{id}/like", s.handleToggleLike)
			r.Post("/posts/{id}/comment", s.handleAddComment)
			r.Get("/users", s.handleSearchUsers)
		})
	})
	r.Get("/ws/updates", s.handleUpdates)
	s.router = r

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requireBearer rejects requests without a bearer token. The mock does not
// verify signatures; presence is what the contract requires.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeResult maps a gateway result onto the wire: injected transport
// failures become a bad gateway status so HTTP clients observe them as
// transport errors too.
func writeResult[T any](w http.ResponseWriter, env api.Envelope[T], err error) {
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	writeJSON(w, env)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, api.FailEnvelope[string]("Bad request", "Malformed login payload"))
		return
	}
	env, err := s.mem.Login(r.Context(), req)
	writeResult(w, env, err)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, api.FailEnvelope[string]("Bad request", "Malformed registration payload"))
		return
	}
	env, err := s.mem.Register(r.Context(), req)
	writeResult(w, env, err)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	env, err := s.mem.ListPosts(r.Context())
	writeResult(w, env, err)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	env, err := s.mem.GetPost(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, env, err)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, api.FailEnvelope[api.Post]("Bad request", "Malformed post payload"))
		return
	}
	env, err := s.mem.CreatePost(r.Context(), req.Content)
	writeResult(w, env, err)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	env, err := s.mem.ToggleLike(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, env, err)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, api.FailEnvelope[string]("Bad request", "Malformed comment payload"))
		return
	}
	env, err := s.mem.AddComment(r.Context(), chi.URLParam(r, "id"), req.Content)
	writeResult(w, env, err)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	env, err := s.mem.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	writeResult(w, env, err)
}

// handleUpdates upgrades to a websocket and streams changed post IDs until
// the peer goes away.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.hub.add(conn)

	// Reads are discarded; the loop exists to notice the close.
	go func() {
		defer func() {
			s.hub.remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
