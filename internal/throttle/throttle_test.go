package throttle

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

// TestThrottleJitter tests that jitter stays inside the configured bounds.
func TestThrottleJitter(t *testing.T) {
	t.Parallel()

	th := New(
		WithJitter(20*time.Millisecond, 50*time.Millisecond),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)

	for range 1000 {
		j := th.Jitter()
		if j < 20*time.Millisecond || j > 50*time.Millisecond {
			t.Fatalf("jitter %v out of bounds", j)
		}
	}
}

// TestThrottleWait tests the total delay applied by Wait.
func TestThrottleWait(t *testing.T) {
	t.Parallel()

	t.Run("waits base plus jitter", func(t *testing.T) {
		t.Parallel()

		var got time.Duration
		th := New(WithJitter(5*time.Millisecond, 5*time.Millisecond))
		th.sleep = func(_ context.Context, d time.Duration) error {
			got = d
			return nil
		}

		if err := th.Wait(context.Background(), 100*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 105*time.Millisecond {
			t.Errorf("expected 105ms, got %v", got)
		}
	})

	t.Run("max below min is clamped", func(t *testing.T) {
		t.Parallel()

		th := New(WithJitter(10*time.Millisecond, time.Millisecond))
		if j := th.Jitter(); j != 10*time.Millisecond {
			t.Errorf("expected 10ms, got %v", j)
		}
	})

	t.Run("cancelled context returns early", func(t *testing.T) {
		t.Parallel()

		th := New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := th.Wait(ctx, time.Hour)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Wait did not return early")
		}
	})
}

// TestThrottleRequestsPerSecond tests the optional global ceiling.
func TestThrottleRequestsPerSecond(t *testing.T) {
	t.Parallel()

	th := New(WithJitter(0, 0), WithRequestsPerSecond(20))

	start := time.Now()
	for range 5 {
		if err := th.Wait(context.Background(), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// First token is immediate, the remaining four take 50ms each.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected rate limiting to slow calls, took %v", elapsed)
	}

	if New(WithRequestsPerSecond(0)).limiter != nil {
		t.Error("expected zero rps to disable the limiter")
	}
}
