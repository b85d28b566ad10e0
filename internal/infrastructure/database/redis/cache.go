package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/opsdesk/filetrack/pkg/errors"
)

// ViewCache stores serialized report views with a short TTL.  Concurrent
// loads of the same missing key collapse into one loader call.
type ViewCache struct {
	client *Client
	group  singleflight.Group
}

// NewViewCache builds a cache on the shared client.
func NewViewCache(client *Client) *ViewCache {
	return &ViewCache{client: client}
}

// Get returns the cached bytes for key, ok=false on a miss.
func (c *ViewCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.rdb.Get(ctx, c.client.key("view:"+key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "reading cached view")
	}
	return data, true, nil
}

// Set stores bytes under key for ttl.
func (c *ViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.rdb.Set(ctx, c.client.key("view:"+key), value, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "writing cached view")
	}
	return nil
}

// GetOrLoad returns the cached bytes for key, invoking loader on a miss and
// caching its result.  Concurrent misses on the same key share one loader
// invocation.
func (c *ViewCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, data, ttl); err != nil {
			// Serve the loaded value even if caching it failed.
			return data, nil
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
