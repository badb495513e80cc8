package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisStorage connects to Redis and verifies the connection with a ping.
func NewRedisStorage(ctx context.Context, addr string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := conn.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return conn, nil
}
