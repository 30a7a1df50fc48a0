package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkroute/internal/platform/config"
)

func newTestTokenService() *TokenService {
	return NewTokenService(config.JWTConfig{Secret: "test-secret", UnlockTokenTTL: time.Minute})
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService()

	tok, err := svc.GenerateAccessToken("user1", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestAccessToken_Rejections(t *testing.T) {
	svc := newTestTokenService()

	expired, err := svc.GenerateAccessToken("user1", RoleUser, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "got %v", err)

	other := NewTokenService(config.JWTConfig{Secret: "other-secret"})
	forged, err := other.GenerateAccessToken("user1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.Error(t, err)

	unlock, _, err := svc.GenerateUnlockToken("abc")
	require.NoError(t, err)
	_, err = svc.ValidateToken(unlock)
	assert.Error(t, err, "unlock tokens must not authenticate API calls")

	_, err = svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestUnlockToken(t *testing.T) {
	svc := newTestTokenService()
	now := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return now }

	tok, expiresAt, err := svc.GenerateUnlockToken("abc")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), expiresAt)

	assert.NoError(t, svc.VerifyUnlockToken(tok, "abc"))
	assert.ErrorIs(t, svc.VerifyUnlockToken(tok, "xyz"), ErrWrongAlias)

	access, err := svc.GenerateAccessToken("user1", RoleUser, time.Hour)
	require.NoError(t, err)
	assert.Error(t, svc.VerifyUnlockToken(access, "abc"))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, svc.VerifyUnlockToken(tok, "abc"), jwt.ErrTokenExpired)
}
