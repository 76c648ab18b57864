package cache

import (
	"context"
	"time"
)

const defaultImageEntries = 256

// ImageCache keeps fetched logo bytes in process memory. It serves as the
// logo cache when Redis is not configured.
type ImageCache struct {
	store Cache[string, []byte]
}

func NewImageCache() *ImageCache {
	return &ImageCache{store: NewBoundedTTLCache[string, []byte](defaultImageEntries)}
}

func (c *ImageCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	data, ok := c.store.Get(url)
	return data, ok, nil
}

func (c *ImageCache) Set(_ context.Context, url string, data []byte, ttl time.Duration) error {
	c.store.Set(url, data, ttl)
	return nil
}
