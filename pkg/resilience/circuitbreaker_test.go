package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func failing(context.Context) error { return errBackend }

func succeeding(context.Context) error { return nil }

// tripBreaker drives b to the open state.
func tripBreaker(t *testing.T, b *Breaker, threshold int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < threshold; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	tripBreaker(t, b, 3)

	if err := b.Call(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker should reject without calling: %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("success: %v", err)
	}
	// One more failure must not trip: the counter was reset.
	_ = b.Call(ctx, failing)
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenProbeRecovers(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenMax: 1})
	clock := time.Now()
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	tripBreaker(t, b, 1)

	clock = clock.Add(20 * time.Millisecond)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after successful probe", b.State())
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenMax: 1})
	clock := time.Now()
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	tripBreaker(t, b, 1)

	clock = clock.Add(20 * time.Millisecond)
	if err := b.Call(ctx, failing); !errors.Is(err, errBackend) {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after failed probe", b.State())
	}
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenMax: 1})
	clock := time.Now()
	b.now = func() time.Time { return clock }

	tripBreaker(t, b, 1)
	clock = clock.Add(20 * time.Millisecond)

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = b.Call(context.Background(), func(context.Context) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	// The single probe slot is taken; a second call is rejected.
	if err := b.Call(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second probe should be rejected: %v", err)
	}
	close(release)
}

func TestBreakerStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
