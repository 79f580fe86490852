package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retries of a failed fetch.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 1 (no retry)
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff.
	// Default: 5s
	MaxDelay time.Duration

	// Jitter adds up to 25% random delay per wait.
	Jitter bool

	// RetryIf reports whether err is worth another attempt.
	// Default: every non-nil error except an open circuit.
	RetryIf func(err error) bool
}

// Retry re-runs an operation with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil && err != ErrCircuitOpen }
	}
	return &Retry{config: config}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Execute runs op until it succeeds, RetryIf rejects the error, attempts
// are exhausted, or ctx is done. The last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil || !r.config.RetryIf(err) || attempt >= r.config.MaxAttempts {
			return err
		}

		timer := time.NewTimer(r.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	d := r.config.InitialDelay << (attempt - 1)
	if d <= 0 || d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
