package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medplatform/orders/internal/domain"
)

// Validator verifies HMAC-256 signed tokens: matching issuer, audience,
// algorithm and signature, rejecting expiry violations, per §4.1.1.
type Validator struct {
	secret   []byte
	issuer   string
	audience string
	clock    domain.Clock
}

func NewValidator(secret []byte, issuer, audience string, clock domain.Clock) *Validator {
	return &Validator{secret: secret, issuer: issuer, audience: audience, clock: clock}
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.secret, nil
}

func (v *Validator) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// ValidateAccessToken parses and requires TokenTypeAccess.
func (v *Validator) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// ValidateRefreshToken parses and requires TokenTypeRefresh. Live-set
// membership is checked by the caller (internal/identity), since that check
// needs the KV store, not just the signature.
func (v *Validator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
