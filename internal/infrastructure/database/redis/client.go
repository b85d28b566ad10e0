// Package redis wraps the go-redis client with the small surface filetrack
// needs: a view cache for the dashboard and a mutex for the sweep.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// Client wraps a redis connection with the key prefix applied everywhere.
type Client struct {
	rdb    *redis.Client
	prefix string
	logger logging.Logger
}

// NewClient connects to redis and verifies the connection with a ping.
func NewClient(cfg config.RedisConfig, logger logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "connecting to redis")
	}

	logger.Info("redis connected", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix, logger: logger}, nil
}

// NewClientFromRDB wraps an existing connection.  Used by tests with a mock.
func NewClientFromRDB(rdb *redis.Client, prefix string, logger logging.Logger) *Client {
	return &Client{rdb: rdb, prefix: prefix, logger: logger}
}

// key applies the configured prefix.
func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Ping checks liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
