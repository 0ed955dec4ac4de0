package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// authPathPrefix marks the routes that never carry a bearer token.
const authPathPrefix = "/api/auth/"

// TokenSource supplies the current bearer token. An empty string means
// signed out; no Authorization header is attached then.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

// Token implements TokenSource.
func (f TokenSourceFunc) Token() string {
	return f()
}

// Client is the HTTP implementation of Gateway, speaking the envelope
// contract against a configured base URL.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource

	// onAuthError fires once per request that came back 401 or 403.
	onAuthError func()

	metrics *Metrics
	tracer  trace.Tracer
	log     *slog.Logger
}

// ClientOption configures NewClient.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying *http.Client (timeouts, transport).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithAuthErrorHook sets the cross-cutting 401/403 handler. The session
// layer registers its logout-and-redirect behavior here; the client itself
// only reports.
func WithAuthErrorHook(fn func()) ClientOption {
	return func(c *Client) {
		c.onAuthError = fn
	}
}

// WithMetrics enables per-operation Prometheus metrics.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracerName sets the OpenTelemetry tracer name (default "tweetapp").
func WithTracerName(name string) ClientOption {
	return func(c *Client) {
		c.tracer = otel.Tracer(name)
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a gateway client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer("tweetapp"),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPosts implements Gateway.
func (c *Client) ListPosts(ctx context.Context) (Envelope[[]Post], error) {
	return call[[]Post](c, ctx, OpListPosts, http.MethodGet, "/api/posts", nil)
}

// GetPost implements Gateway.
func (c *Client) GetPost(ctx context.Context, id string) (Envelope[Post], error) {
	return call[Post](c, ctx, OpGetPost, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil)
}

// CreatePost implements Gateway.
func (c *Client) CreatePost(ctx context.Context, content string) (Envelope[Post], error) {
	body := map[string]string{"content": content}
	return call[Post](c, ctx, OpCreatePost, http.MethodPost, "/api/posts", body)
}

// ToggleLike implements Gateway. The PUT carries no body.
func (c *Client) ToggleLike(ctx context.Context, id string) (Envelope[string], error) {
	path := "/api/posts/" + url.PathEscape(id) + "/like"
	return call[string](c, ctx, OpToggleLike, http.MethodPut, path, nil)
}

// AddComment implements Gateway.
func (c *Client) AddComment(ctx context.Context, id, content string) (Envelope[string], error) {
	path := "/api/posts/" + url.PathEscape(id) + "/comment"
	body := map[string]string{"content": content}
	return call[string](c, ctx, OpAddComment, http.MethodPost, path, body)
}

// Login implements Gateway.
func (c *Client) Login(ctx context.Context, req LoginRequest) (Envelope[string], error) {
	return call[string](c, ctx, OpLogin, http.MethodPost, "/api/auth/login", req)
}

// Register implements Gateway.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (Envelope[string], error) {
	return call[string](c, ctx, OpRegister, http.MethodPost, "/api/auth/register", req)
}

// SearchUsers implements Gateway.
func (c *Client) SearchUsers(ctx context.Context, query string) (Envelope[[]User], error) {
	path := "/api/users?query=" + url.QueryEscape(query)
	return call[[]User](c, ctx, OpSearchUsers, http.MethodGet, path, nil)
}

// call issues one request and maps the response onto the envelope contract.
// It is a function rather than a method because methods cannot carry their
// own type parameters.
func call[T any](c *Client, ctx context.Context, op, method, path string, body any) (Envelope[T], error) {
	var env Envelope[T]

	spanCtx, span := c.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.op", op),
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	settle := func(status string) {
		c.metrics.observe(op, status, time.Since(start))
		c.log.Debug("gateway call settled", "op", op, "status", status)
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			settle(statusTransport)
			span.SetStatus(codes.Error, err.Error())
			return env, &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(spanCtx, method, c.baseURL+path, reader)
	if err != nil {
		settle(statusTransport)
		span.SetStatus(codes.Error, err.Error())
		return env, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil && !strings.HasPrefix(path, authPathPrefix) {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		settle(statusTransport)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return env, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		settle(statusUnauthorized)
		span.SetStatus(codes.Error, "unauthorized")
		if c.onAuthError != nil {
			c.onAuthError()
		}
		return env, fmt.Errorf("gateway %s: %w", op, ErrUnauthorized)
	}

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		settle(statusTransport)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Envelope[T]{}, &TransportError{Op: op, Err: err}
	}

	if env.Ok() {
		settle(statusSuccess)
		span.SetStatus(codes.Ok, "")
	} else {
		settle(statusSoftFailure)
	}
	return env, nil
}
