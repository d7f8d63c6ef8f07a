package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockFailed is returned when a lock could not be acquired within the
// configured number of attempts.
var ErrLockFailed = errors.New("failed to acquire lock")

// Locker serializes writers of a named resource. The returned function
// releases the lock and must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Local hands out one lock per key inside the current process.
type Local struct {
	locks sync.Map // key -> chan struct{}
}

// NewLocal creates a new Local locker.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) slot(key string) chan struct{} {
	ch, _ := l.locks.LoadOrStore(key, make(chan struct{}, 1))
	return ch.(chan struct{})
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
