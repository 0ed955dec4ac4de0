// Package live consumes the backend's post-change stream.
//
// The server broadcasts the ID of every post that changed on /ws/updates.
// Surfaces feed those IDs into their engine's ApplyRemote so state edited by
// other clients converges without polling.
package live

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// update is the wire shape of one stream message.
type update struct {
	PostID string `json:"postId"`
}

// Updates is an open connection to the post-change stream. Callbacks run on
// the read goroutine; keep them short or hand off.
type Updates struct {
	conn *websocket.Conn
	log  *slog.Logger

	mu        sync.Mutex
	nextSubID uint64
	subs      map[uint64]func(postID string)
	closed    bool

	done chan struct{}
}

// Option configures Dial.
type Option func(*Updates)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(u *Updates) {
		u.log = log
	}
}

// Dial connects to the stream at url (a ws:// or wss:// endpoint) and starts
// reading.
func Dial(url string, opts ...Option) (*Updates, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	u := &Updates{
		conn: conn,
		log:  slog.Default(),
		subs: make(map[uint64]func(string)),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}

	go u.readLoop()
	return u, nil
}

// Subscribe registers fn for every changed post ID. The returned function
// removes the subscription.
func (u *Updates) Subscribe(fn func(postID string)) (unsubscribe func()) {
	u.mu.Lock()
	u.nextSubID++
	id := u.nextSubID
	u.subs[id] = fn
	u.mu.Unlock()

	return func() {
		u.mu.Lock()
		delete(u.subs, id)
		u.mu.Unlock()
	}
}

// Close shuts the connection down and stops the read loop. Safe to call more
// than once.
func (u *Updates) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()

	err := u.conn.Close()
	<-u.done
	return err
}

// Done is closed when the read loop exits, whether by Close or by the peer
// going away.
func (u *Updates) Done() <-chan struct{} {
	return u.done
}

func (u *Updates) readLoop() {
	defer close(u.done)
	for {
		var msg update
		if err := u.conn.ReadJSON(&msg); err != nil {
			u.mu.Lock()
			closed := u.closed
			u.mu.Unlock()
			if !closed {
				u.log.Warn("update stream closed", "err", err)
			}
			return
		}
		if msg.PostID == "" {
			continue
		}

		u.mu.Lock()
		fns := make([]func(string), 0, len(u.subs))
		for _, fn := range u.subs {
			fns = append(fns, fn)
		}
		u.mu.Unlock()

		for _, fn := range fns {
			fn(msg.PostID)
		}
	}
}
