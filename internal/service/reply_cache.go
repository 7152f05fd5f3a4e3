package service

import (
	"context"
	"time"

	"speakopoly_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisReplyCache 基于 Redis 的教练回复缓存
type RedisReplyCache struct {
	client *redis.Client
}

func NewRedisReplyCache(client *redis.Client) *RedisReplyCache {
	return &RedisReplyCache{client: client}
}

func (c *RedisReplyCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Failed to read coach reply cache", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *RedisReplyCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Log.Warn("Failed to write coach reply cache", zap.String("key", key), zap.Error(err))
	}
}
