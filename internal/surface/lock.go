package surface

import (
	"context"
	"errors"
	"sync"
)

// ErrNotHeld is the panic value raised by Release on an unheld Lock.
var ErrNotHeld = errors.New("surface: release of unheld lock")

// Lock is a mutual-exclusion lock with a FIFO wait queue.
// Ownership passes directly from the releasing holder to the oldest waiter,
// so no waiter can be overtaken by a later arrival.
//
// The zero value is an unlocked Lock.
type Lock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Acquire blocks until the caller is the sole holder or ctx is done.
// On success the caller must call Release exactly once.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	grant := make(chan struct{})
	l.waiters = append(l.waiters, grant)
	l.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == grant {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// Ownership was handed over while we were giving up; pass it on.
		<-grant
		l.Release()
		return ctx.Err()
	}
}

// Release hands ownership to the next waiter in arrival order,
// or unlocks when nobody waits.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		panic(ErrNotHeld)
	}
	if len(l.waiters) == 0 {
		l.held = false
		return
	}
	next := l.waiters[0]
	l.waiters = l.waiters[1:]
	close(next)
}

// Do runs fn while holding the lock. The lock is released even when fn
// returns an error.
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Waiting returns the number of callers queued behind the current holder.
func (l *Lock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}
