package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/docrender/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis when an address is configured and
// returns nil otherwise.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("cache.redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
				}
				log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return client, nil
}
