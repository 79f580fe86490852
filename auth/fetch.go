package auth

import (
	"context"
	"time"

	"github.com/jonwraymond/realmgate/resilience"
)

// FetchConfig configures outbound calls to identity providers.
type FetchConfig struct {
	// Timeout bounds one HTTP attempt. Zero leaves it to the caller's
	// context and the HTTP client.
	Timeout time.Duration

	// MaxConcurrent caps simultaneous fetches across all realms.
	// Default: 16
	MaxConcurrent int

	// Rate and Burst bound how fast previously unseen realms are
	// onboarded. Fetches for a realm that already has a breaker are not
	// counted. Defaults: 10 per second, burst 20
	Rate  float64
	Burst int

	// BreakerFailures consecutive failures open one realm's breaker.
	// Default: 5
	BreakerFailures int

	// BreakerReset is how long an open breaker waits before probing.
	// Default: 30s
	BreakerReset time.Duration

	// BreakerIdle drops a realm's breaker after this long without fetches,
	// unless it is open. Default: 10m
	BreakerIdle time.Duration

	// RetryAttempts is the number of attempts per fetch, including the first.
	// Default: 1
	RetryAttempts int
}

// FetchGuard applies rate limiting, a bulkhead, per-realm circuit breaking,
// retry and timeout to realm fetches.
type FetchGuard struct {
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	breakers *resilience.BreakerGroup
	retry    *resilience.Retry
	timeout  time.Duration
}

// NewFetchGuard creates a fetch guard.
func NewFetchGuard(config FetchConfig) *FetchGuard {
	if config.BreakerIdle <= 0 {
		config.BreakerIdle = 10 * time.Minute
	}
	return &FetchGuard{
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  config.Rate,
			Burst: config.Burst,
		}),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
		}),
		breakers: resilience.NewBreakerGroup(resilience.CircuitBreakerConfig{
			MaxFailures:  config.BreakerFailures,
			ResetTimeout: config.BreakerReset,
		}, resilience.WithIdleExpiry(config.BreakerIdle)),
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: config.RetryAttempts,
			Jitter:      true,
		}),
		timeout: config.Timeout,
	}
}

// Do runs op for the realm identified by realm.
//
// A realm without a breaker is new: it must pass the rate limiter before a
// breaker is created for it, so rejected realms leave no state behind.
func (g *FetchGuard) Do(ctx context.Context, realm string, op func(context.Context) error) error {
	if _, seen := g.breakers.Lookup(realm); !seen && !g.limiter.Allow() {
		return resilience.ErrRateLimitExceeded
	}
	exec := resilience.NewExecutor(
		resilience.WithBulkhead(g.bulkhead),
		resilience.WithCircuitBreaker(g.breakers.Get(realm)),
		resilience.WithRetry(g.retry),
		resilience.WithTimeout(g.timeout),
	)
	return exec.Execute(ctx, op)
}

// Breakers exposes the per-realm breakers for health reporting.
func (g *FetchGuard) Breakers() *resilience.BreakerGroup {
	return g.breakers
}
