// Package token implements the impression token codec described in the ad
// decisioning core: a compact, HMAC-signed, opaque token carrying an
// impression ID and an expiry instant. It is grounded on the teacher
// repository's app/services/token_service.go (claims struct, signed
// compact encoding, typed expiry/invalid errors) but swaps the RSA/JWT
// machinery for a lighter HMAC scheme matching the smaller payload spec §4.2
// describes, and uses golang-jwt's claims/registered-claims conventions.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token codec error constants, mirroring the teacher's ErrTokenExpired /
// ErrTokenInvalid pairing.
var (
	ErrInvalid = errors.New("invalid impression token")
	ErrExpired = errors.New("impression token has expired")
)

const tokenType = "impression"

// impressionClaims is the signed payload. ImpressionID is carried as a
// string so the provisional pre-insert value ("0") and the final row ID
// share one wire representation (spec §4.2 note on token rewrite).
type impressionClaims struct {
	ImpressionID string `json:"impressionId"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies impression tokens with a single process-wide
// HMAC secret, set once at startup and never rotated mid-process.
type Codec struct {
	secret []byte
}

// NewCodec builds a Codec from the process JWT_SECRET. The secret must be
// non-empty; an empty secret would make every token trivially forgeable.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: secret must not be empty")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Claims is the decoded, verified payload handed back to callers.
type Claims struct {
	ImpressionID string
	ExpiresAt    time.Time
}

// Encode produces a compact signed token binding impressionID to
// expiresAt. Per spec §4.2, the reservation flow calls this twice: once
// with the provisional ID "0" before the impression row exists, and once
// more with the real row ID to produce the token that is actually
// returned to the caller.
func (c *Codec) Encode(impressionID string, expiresAt time.Time) (string, error) {
	claims := impressionClaims{
		ImpressionID: impressionID,
		Type:         tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature, type tag, and expiry of a token string.
// The token is deliberately opaque: callers must still look up the
// canonical impression row by the decoded ImpressionID / the raw token
// string rather than trusting any other claim as authoritative.
func (c *Codec) Decode(raw string) (*Claims, error) {
	var claims impressionClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method", ErrInvalid)
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Type != tokenType {
		return nil, fmt.Errorf("%w: wrong token type %q", ErrInvalid, claims.Type)
	}
	expiresAt := claims.ExpiresAt.Time
	if !expiresAt.After(time.Now().UTC()) {
		return nil, ErrExpired
	}
	return &Claims{
		ImpressionID: claims.ImpressionID,
		ExpiresAt:    expiresAt,
	}, nil
}
