package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT claims structure. The scopes claim is a snapshot
// taken at issuance and is informational only: authorization always reads
// the live account record, never this copy.
type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Codec mints and verifies the signed access tokens carried in the cookie.
// It is stateless; the signing secret is injected at construction.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec signing with the given shared secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Issue creates a signed token for the subject with an absolute expiry of
// now + ttl. Timestamps are second precision.
func (c *Codec) Issue(subjectID string, scopes []string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token string. It rejects a bad signature,
// a malformed payload, and an expired token (zero leeway). Active-status
// and scope checks happen downstream against live account data.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
