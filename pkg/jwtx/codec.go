// Package jwtx issues and verifies the HMAC-signed session tokens. It does
// no I/O. Revocation is the ledger's job; jwtx only answers "was this minted
// by us and is it within its lifetime".
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pallidlabs/authgate/pkg/idx"
)

// Token kind claim values. Access tokens are short-lived and tracked in the
// revocation ledger; refresh tokens are long-lived and are not.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Default token lifetimes, overridable via configuration.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// Claims are the signed token claims. They are derived on every Verify and
// never persisted.
type Claims struct {
	jwt.RegisteredClaims

	// Role held by the subject when the token was minted. Re-minted on
	// role change so the next request sees the new role.
	Role string `json:"role,omitempty"`

	// Kind distinguishes access from refresh tokens.
	Kind string `json:"kind,omitempty"`
}

// Codec signs and parses tokens with a single symmetric key (HS512).
type Codec struct {
	Key        []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewCodec builds a Codec with default TTLs where none are given.
func NewCodec(key []byte, issuer string, accessTTL, refreshTTL time.Duration) *Codec {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Codec{Key: key, Issuer: issuer, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// IssueAccess mints a short-lived access token for the subject.
func (c *Codec) IssueAccess(subject, role string) (string, error) {
	return c.issue(subject, role, KindAccess, c.AccessTTL)
}

// IssueRefresh mints a long-lived refresh token for the subject.
func (c *Codec) IssueRefresh(subject, role string) (string, error) {
	return c.issue(subject, role, KindRefresh, c.RefreshTTL)
}

func (c *Codec) issue(subject, role, kind string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps serialize at second precision, so without a jti two
			// tokens minted back to back would be byte-identical and collide
			// in the revocation ledger.
			ID:        idx.New().String(),
			Issuer:    c.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Kind: kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.Key)
}

// Verify parses the token, checks the signature and expiry, and returns the
// claims. Failures are always one of the typed sentinel errors: a tampered
// token reports ErrInvalidSig, never ErrExpired, because the signature is
// checked before any claim.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.Key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if c.Issuer != "" && claims.Issuer != c.Issuer {
		return Claims{}, ErrIssuer
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
