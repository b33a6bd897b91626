package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	Configure("round-trip-secret", time.Hour)

	token, err := GenerateAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestTokenWrongSecret(t *testing.T) {
	Configure("first-secret", time.Hour)
	token, err := GenerateAccessToken(7)
	require.NoError(t, err)

	Configure("second-secret", time.Hour)
	_, err = VerifyToken(token)
	assert.Error(t, err, "token signed with another secret must not verify")
}

func TestTokenExpiry(t *testing.T) {
	Configure("expiry-secret", time.Millisecond)
	token, err := GenerateAccessToken(7)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = VerifyToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenGarbage(t *testing.T) {
	Configure("garbage-secret", time.Hour)
	_, err := VerifyToken("not.a.token")
	assert.Error(t, err)
}
