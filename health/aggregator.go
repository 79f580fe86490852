package health

import (
	"context"
	"sync"
	"time"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one CheckAll. Default: 5 seconds
	Timeout time.Duration
}

// Aggregator runs a set of named checkers.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates an empty aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{timeout: config.Timeout, checkers: make(map[string]Checker)}
}

// Register adds c under its own name, replacing a checker of the same name.
func (a *Aggregator) Register(c Checker) error {
	if c == nil {
		return ErrNilChecker
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	name := c.Name()
	if _, ok := a.checkers[name]; !ok {
		a.order = append(a.order, name)
	}
	a.checkers[name] = c
	return nil
}

// Names returns the registered names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs the named checker.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	c, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, c), nil
}

// CheckAll runs every checker concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make([]Checker, 0, len(a.order))
	for _, name := range a.order {
		checkers = append(checkers, a.checkers[name])
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]Result, len(checkers))
	)
	for _, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := run(ctx, c)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Overall folds results into one status. No results is healthy.
func Overall(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

// run executes c and stops waiting when ctx ends.
func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- c.Check(ctx)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Unhealthy("check timed out", ErrCheckTimeout)
	}
	res.Duration = time.Since(start)
	if res.Timestamp.IsZero() {
		res.Timestamp = start
	}
	return res
}
