package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonwraymond/realmgate/resilience"
)

var errIDPDown = errors.New("idp down")

func TestFetchGuard_BreakerPerRealm(t *testing.T) {
	g := NewFetchGuard(FetchConfig{BreakerFailures: 1})
	ctx := context.Background()
	fail := func(context.Context) error { return errIDPDown }
	ok := func(context.Context) error { return nil }

	if err := g.Do(ctx, "https://a", fail); !errors.Is(err, errIDPDown) {
		t.Fatalf("Do() error = %v, want errIDPDown", err)
	}
	if err := g.Do(ctx, "https://a", ok); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Do() on tripped realm = %v, want ErrCircuitOpen", err)
	}
	if err := g.Do(ctx, "https://b", ok); err != nil {
		t.Errorf("Do() on healthy realm = %v, want nil", err)
	}
	if open := g.Breakers().Open(); len(open) != 1 || open[0] != "https://a" {
		t.Errorf("Open() = %v, want [https://a]", open)
	}
}

func TestFetchGuard_Retry(t *testing.T) {
	g := NewFetchGuard(FetchConfig{RetryAttempts: 3})
	calls := 0
	err := g.Do(context.Background(), "https://a", func(context.Context) error {
		calls++
		if calls < 3 {
			return errIDPDown
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestFetchGuard_Timeout(t *testing.T) {
	g := NewFetchGuard(FetchConfig{Timeout: 10 * time.Millisecond})
	err := g.Do(context.Background(), "https://a", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, resilience.ErrTimeout) {
		t.Errorf("Do() error = %v, want ErrTimeout", err)
	}
}

func TestFetchGuard_RateLimit(t *testing.T) {
	g := NewFetchGuard(FetchConfig{Rate: 0.001, Burst: 1})
	ok := func(context.Context) error { return nil }

	if err := g.Do(context.Background(), "https://a", ok); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	if err := g.Do(context.Background(), "https://b", ok); !errors.Is(err, resilience.ErrRateLimitExceeded) {
		t.Errorf("second Do() error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestFetchGuard_RejectedRealmsLeaveNoBreaker(t *testing.T) {
	g := NewFetchGuard(FetchConfig{Rate: 0.001, Burst: 1})
	ok := func(context.Context) error { return nil }

	limited := 0
	for i := range 10000 {
		err := g.Do(context.Background(), fmt.Sprintf("https://idp-%d.example.com", i), ok)
		if errors.Is(err, resilience.ErrRateLimitExceeded) {
			limited++
		}
	}
	if limited != 9999 {
		t.Errorf("rate limited = %d, want 9999", limited)
	}
	if n := g.Breakers().Len(); n != 1 {
		t.Errorf("breakers = %d, want 1", n)
	}
}

func TestFetchGuard_KnownRealmNotRateLimited(t *testing.T) {
	g := NewFetchGuard(FetchConfig{Rate: 0.001, Burst: 1})
	ctx := context.Background()
	ok := func(context.Context) error { return nil }

	if err := g.Do(ctx, "https://a", ok); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	if err := g.Do(ctx, "https://spray", ok); !errors.Is(err, resilience.ErrRateLimitExceeded) {
		t.Fatalf("Do() for new realm = %v, want ErrRateLimitExceeded", err)
	}
	// The bucket is empty, but a realm seen before still gets through.
	for range 3 {
		if err := g.Do(ctx, "https://a", ok); err != nil {
			t.Errorf("Do() for known realm = %v, want nil", err)
		}
	}
}
