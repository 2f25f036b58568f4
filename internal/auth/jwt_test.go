package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livme/livme/internal/apperror"
)

const testSecret = "jwt-test-secret-0123456789"

func newTestTokenService(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, ttl)
	require.NoError(t, err)
	return ts
}

// signRaw signs arbitrary registered claims with the test secret, for
// tokens the service itself would never issue.
func signRaw(t *testing.T, method jwt.SigningMethod, rc jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims{RegisteredClaims: rc}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("too-short", time.Hour)
	assert.Error(t, err)

	ts, err := NewTokenService(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, ts.TTL())

	ts, err = NewTokenService(testSecret, 90*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ts.TTL())
}

func TestGenerateUsesServiceTTL(t *testing.T) {
	ts := newTestTokenService(t, 2*time.Hour)

	tok, err := ts.Generate("profile-1")
	require.NoError(t, err)

	c, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", c.UserID)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), c.ExpiresAt, 5*time.Second)
}

func TestEveryTokenHasItsOwnID(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	seen := map[string]bool{}
	for range 5 {
		tok, err := ts.Generate("profile-1")
		require.NoError(t, err)
		c, err := ts.Parse(tok)
		require.NoError(t, err)

		require.NotEmpty(t, c.TokenID)
		assert.False(t, seen[c.TokenID], "token id %s issued twice", c.TokenID)
		seen[c.TokenID] = true
	}
}

func TestValidateReturnsUserID(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	tok, err := ts.Generate("profile-42")
	require.NoError(t, err)

	id, err := ts.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "profile-42", id)
}

func TestParseRejections(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	now := time.Now()
	valid := jwt.RegisteredClaims{
		ID:        "jti-1",
		Subject:   "profile-1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	expired, err := ts.GenerateWithDuration("profile-1", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewTokenService("a-completely-different-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := otherKey.Generate("profile-1")
	require.NoError(t, err)

	good, err := ts.Generate("profile-1")
	require.NoError(t, err)

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", expired},
		{"signed with another secret", foreign},
		{"truncated signature", good[:len(good)-4]},
		{"other issuer", signRaw(t, jwt.SigningMethodHS256, wrongIssuer)},
		{"no subject", signRaw(t, jwt.SigningMethodHS256, noSubject)},
		{"no expiry", signRaw(t, jwt.SigningMethodHS256, noExpiry)},
		{"HS512", signRaw(t, jwt.SigningMethodHS512, valid)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ts.Parse(tc.token)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
		})
	}
}

func TestParseExpiredMessage(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	tok, err := ts.GenerateWithDuration("profile-1", -time.Second)
	require.NoError(t, err)

	_, err = ts.Parse(tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
