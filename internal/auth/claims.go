package auth

import "github.com/golang-jwt/jwt/v5"

// TokenType distinguishes access from refresh tokens, both of which are
// opaque-to-clients JWTs carrying the same claim shape per §4.1.1.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carries subject (user id), role-set, random identifier (jti),
// type, issued-at, expiry, issuer and audience, per §4.1.1.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string  `json:"roles"`
	Type  TokenType `json:"typ"`
}
