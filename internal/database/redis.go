package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/config"
)

// InitRedis connects to Redis. A nil client is returned when Redis is
// unreachable so callers can degrade (cooldowns become best-effort).
func InitRedis(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis connection failed, continuing without redis", zap.Error(err))
		return nil
	}

	log.Info("redis connection established", zap.String("addr", rdb.Options().Addr))
	return rdb
}
