package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cooldowns enforces per-user per-command minimum re-invocation intervals in
// Redis. With no Redis client the limiter degrades to a no-op, mirroring how
// the rest of the app treats Redis as optional infrastructure.
type Cooldowns struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewCooldowns(rdb *redis.Client, log *zap.Logger) *Cooldowns {
	return &Cooldowns{rdb: rdb, log: log}
}

func cooldownKey(command, userID string) string {
	return fmt.Sprintf("cooldown:%s:%s", command, userID)
}

// Hit arms the cooldown for command/user. It returns zero when the command
// may run, otherwise the remaining wait.
func (c *Cooldowns) Hit(ctx context.Context, command, userID string, d time.Duration) (time.Duration, error) {
	if c.rdb == nil {
		return 0, nil
	}

	key := cooldownKey(command, userID)
	ok, err := c.rdb.SetNX(ctx, key, 1, d).Result()
	if err != nil {
		return 0, fmt.Errorf("arm cooldown %s: %w", key, err)
	}
	if ok {
		return 0, nil
	}

	remaining, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("read cooldown %s: %w", key, err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Reset clears the cooldown so a rejected or cancelled command does not
// penalize the user.
func (c *Cooldowns) Reset(ctx context.Context, command, userID string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, cooldownKey(command, userID)).Err(); err != nil {
		return fmt.Errorf("reset cooldown %s/%s: %w", command, userID, err)
	}
	return nil
}
