package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/medplatform/orders/internal/domain"
)

// SearchCache is the read-through cache of §3/§6 (`search:<hash>`, 180s TTL)
// fronting medicine search queries.
type SearchCache struct {
	c *Client
}

func NewSearchCache(c *Client) *SearchCache { return &SearchCache{c: c} }

func QueryDigest(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

func searchKey(digest string) string { return "search:" + digest }

func (s *SearchCache) Get(ctx context.Context, digest string) ([]byte, bool, error) {
	raw, err := s.c.RDB.Get(ctx, searchKey(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *SearchCache) Put(ctx context.Context, digest string, payload []byte) error {
	return s.c.RDB.Set(ctx, searchKey(digest), payload, domain.SearchCacheTTL).Err()
}
