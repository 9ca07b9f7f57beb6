package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pagstream-payments-hub/internal/config"
)

// RedisClient wraps the Redis operations the webhook sequencer needs.
// Narrowed to an interface so the sequencer can run against miniredis in tests.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}

type redisClient struct {
	conn      *goredis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (RedisClient, error) {
	conn := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr)

	return &redisClient{
		conn:      conn,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

// NewRedisClientFromConn wraps an existing connection. Used by tests to point
// the sequencer at miniredis.
func NewRedisClientFromConn(conn *goredis.Client, keyPrefix string, logger *slog.Logger) RedisClient {
	return &redisClient{
		conn:      conn,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (c *redisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := c.conn.SetNX(ctx, c.keyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return ok, nil
}

func (c *redisClient) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.keyPrefix + k
	}
	if err := c.conn.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

func (c *redisClient) Close() error {
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	c.logger.Info("Closed Redis connection")
	return nil
}
