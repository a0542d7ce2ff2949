package auth

import (
	"testing"
	"time"

	"tutorwallet/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "tutorwallet"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWT()
	token, err := GenerateAccessToken(cfg, 42, "a@b.c", "STUDENT")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "STUDENT", claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	cfg := testJWT()
	token, err := GenerateAccessToken(cfg, 42, "a@b.c", "STUDENT")
	require.NoError(t, err)

	other := *cfg
	other.AccessSecret = "different"
	_, err = ParseAccessToken(&other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	old, err := GenerateAccessToken(&expired, 42, "a@b.c", "STUDENT")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
