// Package auth verifies the bearer tokens sent to the export endpoints.
//
// Tokens are HS256 JWTs carrying the publisher's id and display name. Token
// issuance for real users happens elsewhere; Manager.GenerateToken exists
// for development and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSecret is returned when the manager has no signing secret.
	ErrNoSecret = errors.New("token secret not configured")
)

// Claims identify the publisher of exported items.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and validates tokens with a shared secret. A manager with an
// empty secret rejects every token.
type Manager struct {
	secret     []byte
	expiration time.Duration
}

// NewManager creates a token manager. expiration applies to generated tokens.
func NewManager(secret string, expiration time.Duration) *Manager {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), expiration: expiration}
}

// GenerateToken returns a signed token for the given publisher.
func (m *Manager) GenerateToken(userID, username string) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoSecret
	}
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateToken validates a token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrNoSecret)
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromRequest validates the "Authorization: Bearer <token>" header of r.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return m.ValidateToken(strings.TrimSpace(token))
}

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
