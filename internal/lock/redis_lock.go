// Package lock serializes toggles on the same key across server instances.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:engagement:"

// ErrNotAcquired is returned when the lock is still held at the deadline
var ErrNotAcquired = errors.New("lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker hands out short-lived mutexes keyed by string
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker is a SET NX PX mutex with a token-checked release
type RedisLocker struct {
	rdb     redis.Cmdable
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

type Option func(*RedisLocker)

// WithWait bounds how long Acquire keeps retrying
func WithWait(d time.Duration) Option { return func(l *RedisLocker) { l.wait = d } }

func WithBackoff(d time.Duration) Option { return func(l *RedisLocker) { l.backoff = d } }

func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration, opts ...Option) *RedisLocker {
	l := &RedisLocker{rdb: rdb, ttl: ttl, wait: 2 * ttl, backoff: 20 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the key is free, ctx is done or the wait elapses.
// The returned release is safe to call once the lock has expired.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// ctx may already be cancelled by the time the caller releases
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.rdb, []string{full}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}
