package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medplatform/orders/internal/domain"
)

// Minter issues HMAC-256-signed access and refresh tokens. The teacher's
// reference issues RS256 tokens with a rotating key store; §4.1.1 requires
// symmetric HMAC-256 at a single shared secret instead, so the keypair and
// "kid" header are dropped and a flat secret takes their place.
type Minter struct {
	secret     []byte
	issuer     string
	audience   string
	clock      domain.Clock
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewMinter builds a Minter with the §6 environment-configurable access and
// refresh lifetimes; callers without an override should pass
// domain.AccessTokenLifetime/domain.RefreshTokenLifetime.
func NewMinter(secret []byte, issuer, audience string, clock domain.Clock, accessTTL, refreshTTL time.Duration) *Minter {
	return &Minter{secret: secret, issuer: issuer, audience: audience, clock: clock, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Minted is a signed token plus the random identifier embedded in it, which
// callers register in (access) or rotate within (refresh) the live set.
type Minted struct {
	Token string
	JTI   string
}

func (m *Minter) mint(subject string, roles []string, typ TokenType, ttl time.Duration) (Minted, error) {
	now := m.clock.Now()
	jti := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
		Type:  typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return Minted{}, err
	}
	return Minted{Token: signed, JTI: jti}, nil
}

func (m *Minter) MintAccessToken(subject string, roles []string) (Minted, error) {
	return m.mint(subject, roles, TokenTypeAccess, m.accessTTL)
}

func (m *Minter) MintRefreshToken(subject string, roles []string) (Minted, error) {
	return m.mint(subject, roles, TokenTypeRefresh, m.refreshTTL)
}
