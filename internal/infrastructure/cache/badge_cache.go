package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPrefix = "approvals:unread:"
	defaultTTL    = 10 * time.Minute
)

// BadgeCache implements port.BadgeCache on Redis
type BadgeCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// Option configures a BadgeCache
type Option func(*BadgeCache)

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) Option {
	return func(c *BadgeCache) { c.prefix = prefix }
}

// WithTTL overrides how long a cached count lives
func WithTTL(ttl time.Duration) Option {
	return func(c *BadgeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewBadgeCache connects to redisURL and verifies the connection
func NewBadgeCache(ctx context.Context, redisURL string, logger *zap.Logger, opts ...Option) (*BadgeCache, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewBadgeCacheWithClient(client, logger, opts...), nil
}

// NewBadgeCacheWithClient creates a cache from an existing Redis client
func NewBadgeCacheWithClient(client *redis.Client, logger *zap.Logger, opts ...Option) *BadgeCache {
	c := &BadgeCache{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *BadgeCache) key(identity string) string {
	return c.prefix + identity
}

// GetUnread returns the cached count and whether it was present
func (c *BadgeCache) GetUnread(ctx context.Context, identity string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread count: %w", err)
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.logger.Warn("Discarding malformed unread count",
			zap.String("identity", identity),
			zap.String("value", val))
		_ = c.client.Del(ctx, c.key(identity)).Err()
		return 0, false, nil
	}
	return n, true, nil
}

// SetUnread caches count for identity
func (c *BadgeCache) SetUnread(ctx context.Context, identity string, count int64) error {
	if err := c.client.Set(ctx, c.key(identity), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("set unread count: %w", err)
	}
	return nil
}

// Invalidate drops the cached counts of identities
func (c *BadgeCache) Invalidate(ctx context.Context, identities ...string) error {
	if len(identities) == 0 {
		return nil
	}

	keys := make([]string, len(identities))
	for i, id := range identities {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread counts: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *BadgeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *BadgeCache) Close() error {
	return c.client.Close()
}
