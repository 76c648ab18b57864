package cache

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/docrender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, int]()
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Delete("b")
	assert.Equal(t, 0, c.Len())
}

func TestBoundedTTLCacheEvicts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewBoundedTTLCache[string, int](2)
	c.now = func() time.Time { return now }

	c.Set("soon", 1, time.Second)
	c.Set("later", 2, time.Hour)
	c.Set("new", 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("soon")
	assert.False(t, ok)
	_, ok = c.Get("later")
	assert.True(t, ok)

	// Overwriting an existing key never evicts.
	c.Set("new", 4, time.Hour)
	assert.Equal(t, 2, c.Len())
}

func TestImageCache(t *testing.T) {
	c := NewImageCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "https://cdn/logo.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "https://cdn/logo.png", []byte("png"), time.Minute))
	data, ok, err := c.Get(ctx, "https://cdn/logo.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("png"), data)
}

func TestNewRedisClientDisabled(t *testing.T) {
	client, err := NewRedisClient(nil, config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
}
