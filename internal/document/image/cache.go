package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "docrender:image:"

// Cache stores fetched remote images by URL.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, data []byte, ttl time.Duration) error
}

// RedisCache keeps fetched images in Redis under the SHA-256 of their URL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns nil when client is nil, leaving caching disabled.
func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, cacheKey(url), data, ttl).Err()
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
