package api

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token for the remote backend. The token is a JWT
// whose signature is verified server side; the client only inspects the
// expiry claim so it can drop a token that can no longer work instead of
// sending requests doomed to fail.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewSession creates a session holding a bearer token. An empty token means
// anonymous.
func NewSession(token string) *Session {
	s := &Session{}
	s.SetToken(token)
	return s
}

// SetToken replaces the session token and re-reads its expiry claim. A token
// that does not parse as a JWT is kept with no expiry, some deployments use
// opaque tokens.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = time.Time{}
	if token == "" {
		return
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}
}

// Token returns the current token, or an empty string if it has expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expired() {
		return ""
	}
	return s.token
}

// Expired reports whether the session token is past its expiry claim.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired()
}

func (s *Session) expired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// Clear drops the session token, forcing the next request to be anonymous.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}
