// Package auth derives the administrator capability from a bearer token.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyToken is returned by HashToken for a blank token.
var ErrEmptyToken = errors.New("token must not be empty")

// HashToken returns the bcrypt hash to store as admin_token_hash.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyToken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hashed), nil
}

// Gate checks tokens against a configured hash. A Gate with no hash denies
// everything.
type Gate struct {
	hash []byte
}

// NewGate builds a gate for the given bcrypt hash.
func NewGate(hash string) *Gate {
	return &Gate{hash: []byte(strings.TrimSpace(hash))}
}

// Enabled reports whether a hash is configured.
func (g *Gate) Enabled() bool { return g != nil && len(g.hash) > 0 }

// Allow reports whether token matches the hash.
func (g *Gate) Allow(token string) bool {
	if !g.Enabled() || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(token)) == nil
}

// AllowRequest checks the request's "Authorization: Bearer" token.
func (g *Gate) AllowRequest(r *http.Request) bool {
	return g.Allow(BearerToken(r))
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
