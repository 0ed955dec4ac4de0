package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/tweetapp/tweetapp/pkg/api"
)

// tokenClaims is the payload shape the backend encodes in its tokens.
// exp is seconds since the epoch.
type tokenClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Exp      int64  `json:"exp"`
}

// decodeClaims extracts the identity from a bearer token. It never reports
// an error: a token that cannot be read, is missing claims, or has expired
// yields (nil, false) and the caller treats the session as signed out.
func decodeClaims(token string, now time.Time) (*api.User, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}

	// Payloads arrive in URL-safe base64 without padding; the standard
	// decoder wants both fixed up.
	payload := strings.NewReplacer("-", "+", "_", "/").Replace(parts[1])
	if rem := len(payload) % 4; rem != 0 {
		payload += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}

	var claims tokenClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, false
	}
	if claims.UserID == "" || claims.Username == "" || claims.Exp == 0 {
		return nil, false
	}
	if claims.Exp*1000 < now.UnixMilli() {
		return nil, false
	}

	return &api.User{UserID: claims.UserID, Username: claims.Username}, true
}
