package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator checks whether a raw access token is currently valid.
// It does not expose claims; callers only learn valid or not.
type TokenValidator interface {
	Validate(raw string) error
}

// JWTValidator validates HS256 access tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

// NewJWTValidator returns a validator for tokens signed with secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), now: time.Now}
}

// Validate checks signature, algorithm, expiry and token type.
func (v *JWTValidator) Validate(raw string) error {
	var claims AccessClaims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !tok.Valid || claims.TokenType != TokenTypeAccess {
		return ErrInvalidToken
	}
	return nil
}
