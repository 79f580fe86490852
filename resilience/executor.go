package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns around one operation.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it simply runs op.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds a rate limiter. Nil is ignored.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a bulkhead. Nil is ignored.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds a circuit breaker. Nil is ignored.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries. Nil is ignored.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt. Non-positive durations are ignored.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = NewTimeout(d)
		}
	}
}

// Execute runs op through the configured patterns, outermost first:
// rate limiter, bulkhead, circuit breaker, retry, timeout.
//
// The breaker sits outside retry so one exhausted retry sequence counts as
// a single failure.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op

	if e.timeout != nil {
		run = wrap(run, e.timeout.Execute)
	}
	if e.retry != nil {
		run = wrap(run, e.retry.Execute)
	}
	if e.circuitBreaker != nil {
		run = wrap(run, e.circuitBreaker.Execute)
	}
	if e.bulkhead != nil {
		run = wrap(run, e.bulkhead.Execute)
	}
	if e.rateLimiter != nil {
		run = wrap(run, e.rateLimiter.Execute)
	}

	return run(ctx)
}

type stage func(context.Context, func(context.Context) error) error

func wrap(inner func(context.Context) error, outer stage) func(context.Context) error {
	return func(ctx context.Context) error {
		return outer(ctx, inner)
	}
}
