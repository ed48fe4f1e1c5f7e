package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/config"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	keyPrefix = "gestionali:unread:"
	// countTTL bounds staleness between polls; mark operations invalidate
	// eagerly, publishes to global/role audiences rely on expiry.
	countTTL = 15 * time.Second
)

// UnreadCountCache caches per-user unread counts in Redis. Lookups are
// best-effort: any Redis failure reads as a miss and writes are dropped, so
// the engine stays correct with Redis down.
type UnreadCountCache struct {
	client *redis.Client
	logger *logger.Logger
}

// NewUnreadCountCache connects to Redis and returns the cache, or an error
// when Redis is unreachable.
func NewUnreadCountCache(cfg *config.Config, log *logger.Logger) (*UnreadCountCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &UnreadCountCache{client: client, logger: log}, nil
}

func cacheKey(userID uuid.UUID, kind *notification.Kind) string {
	suffix := "all"
	if kind != nil {
		suffix = string(*kind)
	}
	return keyPrefix + userID.String() + ":" + suffix
}

// GetCount returns a cached unread count and whether it was present
func (c *UnreadCountCache) GetCount(ctx context.Context, userID uuid.UUID, kind *notification.Kind) (int64, bool) {
	val, err := c.client.Get(ctx, cacheKey(userID, kind)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Unread count cache lookup failed", zap.Error(err))
		}
		return 0, false
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}

	return count, true
}

// SetCount stores an unread count with the cache TTL
func (c *UnreadCountCache) SetCount(ctx context.Context, userID uuid.UUID, kind *notification.Kind, count int64) {
	if err := c.client.Set(ctx, cacheKey(userID, kind), count, countTTL).Err(); err != nil {
		c.logger.Warn("Unread count cache store failed", zap.Error(err))
	}
}

// Invalidate drops every cached count for a user
func (c *UnreadCountCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	keys := []string{
		keyPrefix + userID.String() + ":all",
		keyPrefix + userID.String() + ":" + string(notification.KindStandard),
		keyPrefix + userID.String() + ":" + string(notification.KindMessage),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Unread count cache invalidation failed", zap.Error(err))
	}
}

// Close releases the Redis connection
func (c *UnreadCountCache) Close() error {
	return c.client.Close()
}
