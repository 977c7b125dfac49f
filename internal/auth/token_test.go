package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(TokenConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 720 * time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_ConfigErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  TokenConfig
	}{
		{"missing secret", TokenConfig{AccessTTL: time.Hour, RefreshTTL: 2 * time.Hour}},
		{"missing access ttl", TokenConfig{Secret: "s", RefreshTTL: 2 * time.Hour}},
		{"missing refresh ttl", TokenConfig{Secret: "s", AccessTTL: time.Hour}},
		{"access not shorter than refresh", TokenConfig{Secret: "s", AccessTTL: 2 * time.Hour, RefreshTTL: time.Hour}},
		{"equal ttls", TokenConfig{Secret: "s", AccessTTL: time.Hour, RefreshTTL: time.Hour}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenManager(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestIssuePair_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	pair, err := m.IssuePair("user-123")
	require.NoError(t, err)

	accessClaims, err := m.Validate(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-123", accessClaims.UserID)
	assert.Equal(t, TokenTypeAccess, accessClaims.Type)

	refreshClaims, err := m.Validate(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-123", refreshClaims.UserID)

	// The refresh token must outlive its paired access token.
	assert.True(t, refreshClaims.ExpiresAt.After(accessClaims.ExpiresAt))
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)
	pair, err := m.IssuePair("u1")
	require.NoError(t, err)

	other, err := NewTokenManager(TokenConfig{
		Secret:     "different-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 720 * time.Hour,
	})
	require.NoError(t, err)

	_, err = other.Validate(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	// Signature is fine, expiry is in the past.
	expired, err := m.issue("u1", TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = m.Validate(expired, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_TypeMismatch(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)
	pair, err := m.IssuePair("u1")
	require.NoError(t, err)

	_, err = m.Validate(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate(pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	_, err := m.Validate("not-a-token", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuePair_Rotation(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)

	first, err := m.IssuePair("u1")
	require.NoError(t, err)
	second, err := m.IssuePair("u1")
	require.NoError(t, err)

	// Even within the same second the jti claim makes every pair unique.
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTimeUntilExpiry(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t)
	now := time.Now().UTC()

	pair, err := m.IssuePair("u1")
	require.NoError(t, err)

	remaining, err := TimeUntilExpiry(pair.AccessToken, now)
	require.NoError(t, err)
	assert.Greater(t, remaining, 59*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour+time.Minute)

	expired, err := m.issue("u1", TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	remaining, err = TimeUntilExpiry(expired, now)
	require.NoError(t, err)
	assert.Negative(t, remaining)

	_, err = TimeUntilExpiry("garbage", now)
	assert.Error(t, err)
}
