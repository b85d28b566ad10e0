package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// unlockScript releases a lock only when this holder still owns it, so a
// release racing a TTL expiry never deletes another holder's lock.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// Locker hands out best-effort distributed mutexes keyed by name.  Each
// acquisition writes a unique token via SET NX with the TTL as the upper
// bound on how long a crashed holder can block others.
type Locker struct {
	client *Client
	logger logging.Logger
}

// NewLocker builds a locker on the shared client.
func NewLocker(client *Client, logger logging.Logger) *Locker {
	return &Locker{client: client, logger: logger.Named("redis.lock")}
}

// Acquire tries to take the named lock.  It returns acquired=false without
// error when another holder owns it.  The release function is safe to call
// after the TTL expired; it only deletes the key if the token still matches.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := l.client.key("lock:" + name)
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "acquiring lock")
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release uses a fresh context: the caller's may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := l.client.rdb.Eval(rctx, unlockScript, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("releasing lock failed",
				logging.String("name", name),
				logging.Err(err))
		}
	}
	return release, true, nil
}
