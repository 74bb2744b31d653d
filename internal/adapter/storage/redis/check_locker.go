package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CheckLocker implements ports.CheckLocker using Redis SET NX. Locks expire
// after their TTL so a crashed holder never blocks checks for long.
type CheckLocker struct {
	client goredis.UniversalClient
	prefix string
	holder string
}

// NewCheckLocker creates a new Redis-backed check locker.
func NewCheckLocker(client goredis.UniversalClient) *CheckLocker {
	return &CheckLocker{
		client: client,
		prefix: "invoice-check:",
		holder: uuid.NewString(),
	}
}

// Acquire returns true if the caller now holds the lock for key.
func (l *CheckLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+key, l.holder, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Held by another check.
			return false, nil
		}
		return false, fmt.Errorf("redis check lock acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops the lock for key if this locker holds it.
func (l *CheckLocker) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, l.holder).Err(); err != nil {
		return fmt.Errorf("redis check lock release: %w", err)
	}
	return nil
}
