package memory

import (
	"context"
	"sync"
	"time"

	"github.com/openbmc/ibm-logging/pkg/ports"
)

// Locker implements ports.DistributedLocker within a single process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done. The lock is released
// automatically after ttl.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[key]
		if !busy {
			mine := make(chan struct{})
			l.locks[key] = mine
			l.mu.Unlock()

			release := func() { l.release(key, mine) }
			timer := time.AfterFunc(ttl, release)
			return func(ctx context.Context) error {
				timer.Stop()
				release()
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Locker) release(key string, mine chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] == mine {
		delete(l.locks, key)
		close(mine)
	}
}
