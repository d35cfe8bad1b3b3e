// Package token signs and verifies the asymmetric JWTs used for access and
// refresh tokens. Each role has its own RSA key pair; verification failures
// of any kind surface as a nil claims result, never as an error the caller
// has to distinguish.
package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type KeyRole string

const (
	AccessToken  KeyRole = "access"
	RefreshToken KeyRole = "refresh"
)

type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject claim, which carries the user's ID.
func (c *Claims) UserID() string {
	return c.RegisteredClaims.Subject
}

type keyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

type Codec struct {
	keys map[KeyRole]keyPair
}

// NewCodec parses PEM-encoded RSA key material for both key roles.
func NewCodec(accessPrivate, accessPublic, refreshPrivate, refreshPublic []byte) (*Codec, error) {
	access, err := parsePair(accessPrivate, accessPublic)
	if err != nil {
		return nil, fmt.Errorf("access token keys: %w", err)
	}
	refresh, err := parsePair(refreshPrivate, refreshPublic)
	if err != nil {
		return nil, fmt.Errorf("refresh token keys: %w", err)
	}
	return &Codec{keys: map[KeyRole]keyPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}}, nil
}

func parsePair(privatePEM, publicPEM []byte) (keyPair, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return keyPair{}, fmt.Errorf("parse private key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return keyPair{}, fmt.Errorf("parse public key: %w", err)
	}
	return keyPair{private: private, public: public}, nil
}

// Sign issues an RS256 token with sub set to userID, expiring after ttl.
func (c *Codec) Sign(userID string, role KeyRole, ttl time.Duration) (string, error) {
	pair, ok := c.keys[role]
	if !ok {
		return "", fmt.Errorf("unknown key role %q", role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(pair.private)
}

// Verify checks signature and expiry with the role's public key. It returns
// nil for expired, malformed, or wrongly-signed tokens; callers treat nil as
// "invalid session".
func (c *Codec) Verify(tokenStr string, role KeyRole) *Claims {
	pair, ok := c.keys[role]
	if !ok {
		return nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return pair.public, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil
	}
	return claims
}
