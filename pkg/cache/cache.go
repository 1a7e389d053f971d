// Package cache is a thin JSON cache over Redis. A nil *Cache is valid and
// behaves as an always-missing cache, so callers never branch on whether
// Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

const keyPrefix = "kitchenbook:inventory:"

// Cache stores JSON values in Redis
type Cache struct {
	client *redis.Client
	logger *logger.Logger
}

// New connects to Redis. Returns a nil cache when no address is configured.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewFromClient(client, log), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, logger: log.WithComponent("cache")}
}

// Key builds a namespaced cache key
func Key(parts ...string) string {
	key := keyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// GetJSON loads key into dest. The boolean reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		// A stale shape is a miss, the caller repopulates it
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false, nil
	}
	return true, nil
}

// SetJSON stores v under key for ttl
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Health returns the health status of Redis
func (c *Cache) Health(ctx context.Context) map[string]string {
	if c == nil {
		return map[string]string{"status": "disabled"}
	}

	status := map[string]string{"status": "up"}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}
	return status
}

// Close closes the client
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
