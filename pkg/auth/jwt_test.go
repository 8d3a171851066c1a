package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateToken("u1", "alice")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)

	other, err := NewManager("other", time.Hour).GenerateToken("u1", "alice")
	require.NoError(t, err)

	expired, err := NewManager("secret", time.Nanosecond).GenerateToken("u1", "alice")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Username: "alice"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"alg none":     none,
		"no user id":   noUser,
		"garbage":      "a.b.c",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestFromRequest(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateToken("u1", "alice")
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/snippets/export", nil)
	_, err = m.FromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Token "+token)
	_, err = m.FromRequest(r)
	assert.ErrorIs(t, err, ErrInvalidToken)

	r.Header.Set("Authorization", "Bearer "+token)
	claims, err := m.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	ctx := WithClaims(context.Background(), claims)
	got, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)
}

func TestGenerateRequiresUser(t *testing.T) {
	_, err := NewManager("secret", 0).GenerateToken("", "alice")
	assert.Error(t, err)
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	m := NewManager("", time.Hour)
	_, err := m.GenerateToken("u1", "alice")
	assert.ErrorIs(t, err, ErrNoSecret)

	token, err := NewManager("secret", time.Hour).GenerateToken("u1", "alice")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, ErrNoSecret)
}
