// Package token issues and verifies the auth-token cookie value.
//
// Tokens are HS512 JWTs. The signing key is the server token key combined
// with the user's token salt, so rotating a user's salt revokes every token
// issued to them.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("token: invalid token")
	ErrKeyTooShort  = errors.New("token: key must be at least 32 bytes")
)

// Claims is the token payload. Subject carries the username and ID the
// session id.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// SaltLookup returns the token salt of a user.
type SaltLookup func(userID int64) (uuid.UUID, error)

// Issuer signs and verifies tokens.
type Issuer struct {
	key      []byte
	duration time.Duration
	now      func() time.Time
}

// NewIssuer returns an Issuer whose tokens live for duration.
func NewIssuer(key []byte, duration time.Duration) (*Issuer, error) {
	if len(key) < 32 {
		return nil, ErrKeyTooShort
	}
	return &Issuer{key: key, duration: duration, now: time.Now}, nil
}

// Duration returns the token lifetime.
func (i *Issuer) Duration() time.Duration {
	return i.duration
}

// Issue signs a token for the user and session.
func (i *Issuer) Issue(userID int64, username, sessionID string, salt uuid.UUID) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.duration)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.signingKey(salt))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string, lookup SaltLookup) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		c, ok := t.Claims.(*Claims)
		if !ok || c.UserID == 0 {
			return nil, ErrInvalidToken
		}
		salt, err := lookup(c.UserID)
		if err != nil {
			return nil, err
		}
		return i.signingKey(salt), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) signingKey(salt uuid.UUID) []byte {
	k := make([]byte, 0, len(i.key)+len(salt))
	k = append(k, i.key...)
	return append(k, salt[:]...)
}
