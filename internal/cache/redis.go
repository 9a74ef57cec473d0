package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache implements ResponseCache on top of Redis, relying on native key
// expiry for the TTL semantics. Redis failures degrade to cache misses so a
// flaky cache never breaks a fetch.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string
	logger     *logrus.Logger
}

// NewRedisCache wraps an existing Redis client. All keys are namespaced under
// prefix to keep the cache separable from other users of the same database.
func NewRedisCache(client *redis.Client, defaultTTL time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client:     client,
		defaultTTL: defaultTTL,
		prefix:     "aodp_cache:",
		logger:     logger,
	}
}

func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx := context.Background()
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("redis cache get failed")
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ctx := context.Background()
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("redis cache set failed")
	}
}

func (c *RedisCache) Delete(key string) {
	ctx := context.Background()
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.WithError(err).Warn("redis cache delete failed")
	}
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear() {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).Warn("redis cache clear failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Warn("redis cache scan failed")
	}
}

func (c *RedisCache) Len() int {
	ctx := context.Background()
	var count int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Warn("redis cache scan failed")
		return 0
	}
	return count
}
