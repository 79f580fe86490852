package resilience

import (
	"context"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()
	if err := e.Execute(context.Background(), fail); err != errFetch {
		t.Errorf("Execute() error = %v, want %v", err, errFetch)
	}
}

func TestExecutor_BreakerCountsExhaustedRetriesOnce(t *testing.T) {
	cb := NewCircuitBreaker("r", CircuitBreakerConfig{MaxFailures: 2})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	calls := 0
	op := func(context.Context) error {
		calls++
		return errFetch
	}

	_ = e.Execute(context.Background(), op)
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed after one failed sequence", cb.State())
	}

	_ = e.Execute(context.Background(), op)
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open after two failed sequences", cb.State())
	}
	if err := e.Execute(context.Background(), op); err != ErrCircuitOpen {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_RateLimiterOutermost(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1})
	rl.now = clock.Now
	rl.last = clock.Now()
	cb := NewCircuitBreaker("r", CircuitBreakerConfig{MaxFailures: 1})

	e := NewExecutor(WithRateLimiter(rl), WithCircuitBreaker(cb))

	_ = e.Execute(context.Background(), succeed)
	if err := e.Execute(context.Background(), succeed); err != ErrRateLimitExceeded {
		t.Errorf("Execute() error = %v, want ErrRateLimitExceeded", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("rate-limited call affected breaker: state = %v", cb.State())
	}
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(5*time.Millisecond), WithBulkhead(NewBulkhead(BulkheadConfig{})))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != ErrTimeout {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	e := NewExecutor(WithTimeout(0))
	if e.timeout != nil {
		t.Error("WithTimeout(0) configured a timeout")
	}
}
