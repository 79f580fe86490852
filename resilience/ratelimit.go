package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	// Rate is the sustained number of operations per second.
	// Default: 10
	Rate float64

	// Burst is the bucket size.
	// Default: 20
	Burst int
}

// RateLimiter is a token bucket. It never blocks: an empty bucket rejects.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full token bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = 20
	}
	return &RateLimiter{
		config: config,
		now:    time.Now,
		tokens: float64(config.Burst),
		last:   time.Now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
	rl.last = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Execute runs op if a token is available.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}
