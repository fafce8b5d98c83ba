// Package token signs and verifies the access and refresh tokens issued by
// the identity service. Access and refresh tokens use distinct secrets and
// distinct expirations; verification failures are uniform so callers cannot
// tell a bad signature from an expired token.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// Kind distinguishes which secret a token verified against.
type Kind string

const (
	// KindAccess marks a token verified against the access secret.
	KindAccess Kind = "access"
	// KindRefresh marks a token verified against the refresh secret.
	KindRefresh Kind = "refresh"
)

// Claims is the payload embedded in every issued token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies access and refresh tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Config carries the secrets and expirations for both token kinds.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewCodec constructs a Codec from immutable configuration.
func NewCodec(cfg Config) *Codec {
	return &Codec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token for the principal.
func (c *Codec) IssueAccess(principalID, email, role string) (string, error) {
	return c.issue(principalID, email, role, c.accessSecret, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the principal.
func (c *Codec) IssueRefresh(principalID, email, role string) (string, error) {
	return c.issue(principalID, email, role, c.refreshSecret, c.refreshTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (c *Codec) VerifyAccess(raw string) (*Claims, error) {
	return c.verify(raw, c.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (c *Codec) VerifyRefresh(raw string) (*Claims, error) {
	return c.verify(raw, c.refreshSecret)
}

// ValidateEither tries access-secret verification first, then refresh-secret
// verification, and reports which kind succeeded. A token valid under
// neither secret returns shared.ErrInvalidToken; this never panics on
// malformed input.
func (c *Codec) ValidateEither(raw string) (*Claims, Kind, error) {
	if claims, err := c.VerifyAccess(raw); err == nil {
		return claims, KindAccess, nil
	}
	if claims, err := c.VerifyRefresh(raw); err == nil {
		return claims, KindRefresh, nil
	}
	return nil, "", shared.ErrInvalidToken
}

func (c *Codec) issue(principalID, email, role string, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) verify(raw string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, shared.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}
