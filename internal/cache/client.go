package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cmdable is the subset of the redis client surface the cache package
// depends on, aliased so tests can substitute miniredis or a fake.
type Cmdable = redis.Cmdable

// Config configures the Redis connection backing the KV store described in
// §3/§6: OTP records, refresh-token live set, distributed locks, rate-limit
// counters, and the search cache.
type Config struct {
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client wraps a redis.Client with the timeouts §5 requires for KV-store I/O.
type Client struct {
	RDB *redis.Client
}

func NewClient(cfg Config) *Client {
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 2 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})
	return &Client{RDB: rdb}
}

func (c *Client) Close() error { return c.RDB.Close() }

func (c *Client) Ping(ctx context.Context) error {
	return c.RDB.Ping(ctx).Err()
}
