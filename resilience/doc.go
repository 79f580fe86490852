// Package resilience guards outbound calls to identity providers.
//
// Key-set and discovery fetches are the only network calls the
// authentication core makes. They run through an Executor that composes:
//
//   - RateLimiter: caps how fast previously unseen realms can be onboarded,
//     so a flood of tokens naming fresh issuers cannot turn the gateway
//     into a request amplifier.
//   - Bulkhead: caps concurrent fetches across all realms.
//   - CircuitBreaker: stops hammering one realm's provider after repeated
//     failures. BreakerGroup keeps one breaker per realm.
//   - Retry: optional backoff for transient fetch errors.
//   - Timeout: bounds a single attempt.
//
// Usage:
//
//	breakers := resilience.NewBreakerGroup(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(limiter),
//	    resilience.WithBulkhead(bulkhead),
//	    resilience.WithCircuitBreaker(breakers.Get(registrationID)),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return fetchKeySet(ctx)
//	})
package resilience
