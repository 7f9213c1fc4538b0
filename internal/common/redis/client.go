package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client shared by the redis allocation store and the stream notifier.
type Client = redis.Client

// Config REDIS_* settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

const dialTimeout = 5 * time.Second

// Connect opens a client and pings it. The client is closed again if the ping fails.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return c, nil
}
