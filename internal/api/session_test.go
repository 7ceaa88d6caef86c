package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSessionValidToken(t *testing.T) {
	session := NewSession(signedToken(t, time.Now().Add(time.Hour)))
	assert.False(t, session.Expired())
	assert.NotEmpty(t, session.Token())
}

func TestSessionExpiredToken(t *testing.T) {
	session := NewSession(signedToken(t, time.Now().Add(-time.Hour)))
	assert.True(t, session.Expired())
	assert.Empty(t, session.Token())
}

func TestSessionOpaqueToken(t *testing.T) {
	session := NewSession("not-a-jwt")
	assert.False(t, session.Expired())
	assert.Equal(t, "not-a-jwt", session.Token())
}

func TestSessionClear(t *testing.T) {
	session := NewSession(signedToken(t, time.Now().Add(time.Hour)))
	session.Clear()
	assert.Empty(t, session.Token())
	assert.False(t, session.Expired())
}

func TestSessionSetTokenReplaces(t *testing.T) {
	session := NewSession(signedToken(t, time.Now().Add(-time.Hour)))
	assert.True(t, session.Expired())
	session.SetToken(signedToken(t, time.Now().Add(time.Hour)))
	assert.False(t, session.Expired())
	assert.NotEmpty(t, session.Token())
}
