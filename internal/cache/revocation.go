package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LiveSet is the refresh-token live set of §3/§5: membership means valid,
// deletion means revoked, and rotation is delete-then-insert. Unlike a
// revocation blocklist, absence is the failure state, so store errors must
// be treated as "not live" (fail closed) per §7: "Token-store unavailability
// fails closed for refresh."
type LiveSet struct {
	c   *Client
	ttl time.Duration
}

// NewLiveSet ties the live-set entry TTL to the configured refresh-token
// lifetime, so a revoked/rotated-out identifier never outlives the token it
// gated and a live one never expires before its token does.
func NewLiveSet(c *Client, ttl time.Duration) *LiveSet { return &LiveSet{c: c, ttl: ttl} }

func refreshKey(jti string) string { return "refresh_token:" + jti }

func (s *LiveSet) Insert(ctx context.Context, jti string) error {
	return s.c.RDB.Set(ctx, refreshKey(jti), "1", s.ttl).Err()
}

// IsLive reports membership; any store error is treated as "not live"
// (fail closed).
func (s *LiveSet) IsLive(ctx context.Context, jti string) bool {
	err := s.c.RDB.Get(ctx, refreshKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false
	}
	return err == nil
}

func (s *LiveSet) Revoke(ctx context.Context, jti string) error {
	return s.c.RDB.Del(ctx, refreshKey(jti)).Err()
}

// Rotate removes the old identifier before inserting the new one, per §4.1
// Refresh: "the old identifier is removed from the live set before the new
// one is inserted."
func (s *LiveSet) Rotate(ctx context.Context, oldJTI, newJTI string) error {
	if err := s.Revoke(ctx, oldJTI); err != nil {
		return err
	}
	return s.Insert(ctx, newJTI)
}
