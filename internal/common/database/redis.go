// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPoolSize = 10

// RedisClient wraps the Redis client shared by the draft store and the
// programme cache.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultRedisPoolSize
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 2,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping doubles as the readiness check.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return errors.NewUpstreamUnavailableError("redis", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
