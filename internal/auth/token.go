package auth

import (
	"time"

	"resumectl/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Claims is the subset of JWT claims the CLI cares about.
type Claims struct {
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// ParseClaims decodes token without verifying its signature. The API is the
// only party that verifies; the client only needs the subject and expiry.
func ParseClaims(token string) (*Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidFormat, "token is not a JWT", err)
	}

	claims := &Claims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ExpiresIn returns the time left before expiry, or zero when the token has no exp claim.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Expired reports whether the token expires within leeway of now.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(c.ExpiresAt)
}

type storeTokenSource struct {
	store  *Store
	leeway time.Duration
	now    func() time.Time
}

// NewTokenSource adapts store to oauth2.TokenSource so the API client can use
// oauth2.Transport for bearer authentication.
func NewTokenSource(store *Store, leeway time.Duration) oauth2.TokenSource {
	return &storeTokenSource{store: store, leeway: leeway, now: time.Now}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	raw := s.store.Token()
	if raw == "" {
		return nil, errors.NewAuthError(errors.ErrCodeMissingToken, "not logged in, run 'resumectl login'", nil)
	}

	token := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}

	// Opaque tokens are passed through and left for the API to judge.
	claims, err := ParseClaims(raw)
	if err != nil {
		return token, nil
	}
	if claims.Expired(s.now(), s.leeway) {
		return nil, errors.NewAuthError(errors.ErrCodeTokenExpired, "session expired, run 'resumectl login'", nil).
			WithContext("expired_at", claims.ExpiresAt)
	}
	token.Expiry = claims.ExpiresAt
	return token, nil
}
