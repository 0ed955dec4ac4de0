// Package config loads environment configuration, with optional .env
// support for local development.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Backend selects what the gateway talks to.
const (
	BackendHTTP = "http"
	BackendMock = "mock"
)

// Config is everything the CLI needs to assemble the app.
type Config struct {
	// APIURL is the backend base URL for the HTTP gateway.
	APIURL string

	// Backend is BackendHTTP or BackendMock.
	Backend string

	// TokenDir is where the session token persists. Empty keeps the token
	// in memory only.
	TokenDir string

	// Listen is the mock server's bind address.
	Listen string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; its absence is not an error.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "err", err)
	}

	return Config{
		APIURL:    envOr("TWEETAPP_API_URL", "http://localhost:8080"),
		Backend:   envOr("TWEETAPP_BACKEND", BackendMock),
		TokenDir:  os.Getenv("TWEETAPP_TOKEN_DIR"),
		Listen:    envOr("TWEETAPP_LISTEN", ":8080"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
