// Package throttle spaces out externally observable browser actions.
package throttle

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default jitter bounds added on top of every base delay.
const (
	DefaultJitterMin = 20 * time.Millisecond
	DefaultJitterMax = 50 * time.Millisecond
)

// Throttle waits a base delay plus a random jitter before an action.
// An optional global requests-per-second ceiling is applied first.
//
// Throttle is safe for concurrent use.
type Throttle struct {
	jitterMin time.Duration
	jitterMax time.Duration
	limiter   *rate.Limiter

	mu  sync.Mutex
	rnd *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithJitter sets the jitter bounds. max below min is clamped to min.
func WithJitter(minJitter, maxJitter time.Duration) Option {
	return func(t *Throttle) {
		if minJitter < 0 {
			minJitter = 0
		}
		if maxJitter < minJitter {
			maxJitter = minJitter
		}
		t.jitterMin = minJitter
		t.jitterMax = maxJitter
	}
}

// WithRequestsPerSecond caps how often Wait may return across all callers.
// Zero or negative disables the cap.
func WithRequestsPerSecond(rps float64) Option {
	return func(t *Throttle) {
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			t.limiter = nil
		}
	}
}

// WithRand sets the random source used for jitter.
func WithRand(r *rand.Rand) Option {
	return func(t *Throttle) {
		t.rnd = r
	}
}

// New creates a Throttle with the default jitter and no request ceiling.
func New(opts ...Option) *Throttle {
	t := &Throttle{
		jitterMin: DefaultJitterMin,
		jitterMax: DefaultJitterMax,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x62616e)), //nolint:gosec // timing jitter, not security
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Wait blocks for base plus a uniform jitter in [jitterMin, jitterMax].
// It returns early with ctx.Err() when ctx is done.
func (t *Throttle) Wait(ctx context.Context, base time.Duration) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return t.sleep(ctx, base+t.Jitter())
}

// Jitter draws one jitter duration.
func (t *Throttle) Jitter() time.Duration {
	span := int64(t.jitterMax - t.jitterMin)
	if span <= 0 {
		return t.jitterMin
	}
	t.mu.Lock()
	n := t.rnd.Int64N(span + 1)
	t.mu.Unlock()
	return t.jitterMin + time.Duration(n)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
