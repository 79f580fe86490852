package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of operations allowed at once.
	// Default: 16
	MaxConcurrent int

	// MaxWait is how long to wait for a free slot. Zero fails fast.
	MaxWait time.Duration
}

// Bulkhead limits concurrent operations with a semaphore.
type Bulkhead struct {
	config   BulkheadConfig
	sem      chan struct{}
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 16
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.sem }()
	return op(ctx)
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of occupied slots.
func (b *Bulkhead) Active() int {
	return len(b.sem)
}

// Rejected returns how many operations were turned away.
func (b *Bulkhead) Rejected() int64 {
	return b.rejected.Load()
}
