package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript atomically increments the counter and sets an expiry only
// on the first increment of the window, so the window is fixed rather than
// sliding. Grounded in the realtime-messaging-platform redis rate limiter.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter implements the fixed-window counters of §4.1.2 / §6
// (`rl:<subject>:<endpoint>`), with a policy toggle since §7 requires the
// store to fail open for general rate limiting but fail closed elsewhere
// (e.g. the lock store for reservation, the token store for refresh).
type RateLimiter struct {
	c      *Client
	logger *slog.Logger
}

func NewRateLimiter(c *Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{c: c, logger: logger}
}

func rateLimitKey(subject, endpoint string) string {
	return "rl:" + subject + ":" + endpoint
}

// Allow increments the window counter for (subject, endpoint) and reports
// whether the request is within limit. On Redis unavailability it fails
// open per §4.1.2/§7: the request is allowed and the incident logged.
func (r *RateLimiter) Allow(ctx context.Context, subject, endpoint string, limit int, window time.Duration) bool {
	key := rateLimitKey(subject, endpoint)
	count, err := incrementScript.Run(ctx, r.c.RDB, []string{key}, int(window.Seconds())).Int64()
	if err != nil {
		r.logger.Warn("rate limiter store unavailable, failing open",
			slog.String("subject", subject), slog.String("endpoint", endpoint), slog.Any("error", err))
		return true
	}
	return count <= int64(limit)
}
