package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewManager("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, m.ttl, "a non-positive ttl falls back to a day")
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := m.Token("user-1", "user@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestParseRejectsForgedAndExpiredTokens(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewManager("different-secret", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Token("user-1", "user@example.com")
	require.NoError(t, err)
	_, err = m.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken, "a token signed with another secret must not verify")

	// NewManager treats non-positive ttls as a day, so an already-expired
	// token needs a hand-built manager.
	past := &Manager{secret: []byte("secret"), ttl: -2 * time.Minute}
	tok, _, err := past.Token("user-1", "user@example.com")
	require.NoError(t, err)
	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
	assert.False(t, VerifyPassword("not-a-hash", "anything"))
}
