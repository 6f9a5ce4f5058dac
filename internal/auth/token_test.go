package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	raw, err := tokens.Issue("user-1", model.RoleProvider)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, model.RoleProvider, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParse_Expired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue("user-1", model.RoleClient)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParse_Invalid(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	other := NewTokens("another-secret", time.Hour)
	foreign, err := other.Issue("user-1", model.RoleClient)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"missing role": noRole,
		"alg none":     unsigned(t),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func unsigned(t *testing.T) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1", Role: model.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return raw
}

func TestFromHeader(t *testing.T) {
	raw, err := FromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", raw)

	raw, err = FromHeader("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", raw)

	_, err = FromHeader("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = FromHeader("Token abc")
	assert.ErrorIs(t, err, ErrTokenFormat)

	_, err = FromHeader("Bearer ")
	assert.ErrorIs(t, err, ErrTokenFormat)
}
