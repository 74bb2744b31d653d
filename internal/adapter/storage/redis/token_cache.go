package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TokenCache implements ports.TokenCache: the outstanding pre-allocated token
// per provider endpoint of one owner.
type TokenCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewTokenCache creates a Redis-backed token cache scoped to owner.
func NewTokenCache(client goredis.UniversalClient, owner string) *TokenCache {
	return &TokenCache{
		client: client,
		prefix: "alloc:" + owner + ":",
	}
}

// Get returns the cached token for endpoint, or "" if none.
func (c *TokenCache) Get(ctx context.Context, endpoint string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+endpoint).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis token cache get: %w", err)
	}
	return val, nil
}

// Set stores token for endpoint with TTL.
func (c *TokenCache) Set(ctx context.Context, endpoint, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+endpoint, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis token cache set: %w", err)
	}
	return nil
}

// Delete drops the cached token for endpoint.
func (c *TokenCache) Delete(ctx context.Context, endpoint string) error {
	if err := c.client.Del(ctx, c.prefix+endpoint).Err(); err != nil {
		return fmt.Errorf("redis token cache delete: %w", err)
	}
	return nil
}
