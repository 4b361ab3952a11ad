package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sekola/sekola-api/pkg/config"
)

// pingTimeout bounds the startup connectivity check; an unreachable Redis
// degrades to cache-off instead of stalling boot.
const pingTimeout = 3 * time.Second

// NewRedis returns a client for the tenant resolver cache. The resolver
// falls back to Postgres on any cache failure, so the timeouts are kept
// short rather than letting a slow Redis sit on the request path.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
