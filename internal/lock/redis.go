package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/logger"
	"github.com/google/uuid"
)

// unlockScript deletes the key only if it still holds our token, so a
// holder whose lease expired cannot release somebody else's lock.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLocker is a lease-based lock shared by every process talking to the
// same Redis. Acquisition is SET key token NX PX ttl.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
	token         func() string
}

// NewRedisLocker creates a RedisLocker. A lock is held for at most ttl;
// acquisition is attempted maxRetries times, retryInterval apart.
func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration, maxRetries int) *RedisLocker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		token:         uuid.NewString,
	}
}

// tryLock makes a single non-blocking attempt.
func (l *RedisLocker) tryLock(ctx context.Context, key, token string) (bool, error) {
	return l.client.SetNX(ctx, key, token, l.ttl).Result()
}

// Lock retries until the key is acquired, ctx is done, or attempts run out.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := l.token()
	for i := 0; i < l.maxRetries; i++ {
		ok, err := l.tryLock(ctx, key, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.unlock(key, token) }, nil
		}
		if i == l.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
	return nil, ErrLockFailed
}

// unlock runs detached from the request context so a cancelled request
// still releases its lease.
func (l *RedisLocker) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.client.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
		logger.Warningf("Failed to release lock %s: %v", key, err)
	}
}
