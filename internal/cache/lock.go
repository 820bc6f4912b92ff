package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds the token this
// caller set, so one goroutine's lock release can never clear another's
// lock acquired after a TTL expiry.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a distributed mutual-exclusion lock on a single KV key, used to
// guard the (pharmacy, medicine) reservation critical section per §4.4/§5.
// It does not use a fencing token beyond the release-ownership check above;
// callers must assume at-most-once exclusion bounded by the TTL, per §5.
type Lock struct {
	rdb *redis.Client
}

func NewLock(c *Client) *Lock { return &Lock{rdb: c.RDB} }

// Acquire attempts a set-if-absent lock on key with the given TTL. ok is
// false when the lock is already held; the caller must map that to
// INVENTORY_LOCKED (§4.4 step 1).
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock iff it still belongs to token. Safe to call on
// every exit path (success, validation failure, store error) per §4.4 step 5.
func (l *Lock) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}

func InventoryLockKey(pharmacyID, medicineID string) string {
	return "inventory_lock:" + pharmacyID + "_" + medicineID
}
