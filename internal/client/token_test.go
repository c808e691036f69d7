package client

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestTokenNeedsRefresh(t *testing.T) {
	now := time.Now()

	assert.True(t, tokenNeedsRefresh(signedToken(t, -time.Minute), now), "expired token")
	assert.True(t, tokenNeedsRefresh(signedToken(t, 10*time.Second), now), "inside the leeway window")
	assert.False(t, tokenNeedsRefresh(signedToken(t, time.Hour), now), "fresh token")

	// Opaque tokens carry no readable expiry and are left to the 401 path.
	assert.False(t, tokenNeedsRefresh("not-a-jwt", now))
	assert.False(t, tokenNeedsRefresh("", now))
}
