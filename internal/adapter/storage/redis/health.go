package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const healthKey = "health:ping"

// HealthCheck implements ports.HealthChecker for Redis. The backup channel
// and check locks write, so a read-only replica fails the check.
type HealthCheck struct {
	client goredis.UniversalClient
}

func NewHealthCheck(client goredis.UniversalClient) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping writes a short-lived health key.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Set(ctx, healthKey, time.Now().Unix(), 10*time.Second).Err(); err != nil {
		return fmt.Errorf("write health key: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "redis"
}
