package resilience

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until ResetTimeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that open the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30s
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of probes allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called with the breaker name on every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker stops calling a failing dependency for a while.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probesInUse int
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
	}
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset closes the circuit and clears failure counts.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probesInUse >= cb.config.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		cb.probesInUse++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if err == nil {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openedAt = cb.now()
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if err == nil {
			cb.failures = 0
			cb.transitionLocked(StateClosed)
			return
		}
		cb.openedAt = cb.now()
		cb.transitionLocked(StateOpen)
	}
}

// stateLocked moves an expired open circuit to half-open. Caller holds mu.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	cb.probesInUse = 0
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

// BreakerGroup lazily creates one CircuitBreaker per key, sharing a config.
// Realm fetches key it by issuer URI so that one failing
// realm never trips the breaker of another.
//
// With an idle expiry, breakers unused for that long are dropped unless
// they are open, so keys that are seen once do not accumulate.
type BreakerGroup struct {
	config CircuitBreakerConfig
	idle   time.Duration
	now    func() time.Time

	breakers  sync.Map // string -> *groupEntry
	mu        sync.Mutex
	lastSweep time.Time
}

type groupEntry struct {
	cb       *CircuitBreaker
	lastUsed atomic.Int64 // unix nanos
}

// GroupOption configures a BreakerGroup.
type GroupOption func(*BreakerGroup)

// WithIdleExpiry drops breakers that have not been used for d and are not
// open. Zero keeps them forever.
func WithIdleExpiry(d time.Duration) GroupOption {
	return func(g *BreakerGroup) { g.idle = d }
}

// WithGroupClock overrides the time source used for idle expiry.
func WithGroupClock(now func() time.Time) GroupOption {
	return func(g *BreakerGroup) { g.now = now }
}

// NewBreakerGroup creates an empty group.
func NewBreakerGroup(config CircuitBreakerConfig, opts ...GroupOption) *BreakerGroup {
	g := &BreakerGroup{config: config, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	g.lastSweep = g.now()
	return g
}

// Get returns the breaker for key, creating it on first use.
func (g *BreakerGroup) Get(key string) *CircuitBreaker {
	g.sweep()
	now := g.now().UnixNano()
	if v, ok := g.breakers.Load(key); ok {
		e := v.(*groupEntry)
		e.lastUsed.Store(now)
		return e.cb
	}
	e := &groupEntry{cb: NewCircuitBreaker(key, g.config)}
	e.lastUsed.Store(now)
	v, _ := g.breakers.LoadOrStore(key, e)
	return v.(*groupEntry).cb
}

// Lookup returns the breaker for key without creating one.
func (g *BreakerGroup) Lookup(key string) (*CircuitBreaker, bool) {
	v, ok := g.breakers.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*groupEntry).cb, true
}

// Len returns the number of breakers held.
func (g *BreakerGroup) Len() int {
	n := 0
	g.breakers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// sweep drops idle breakers at most once per half idle period.
func (g *BreakerGroup) sweep() {
	if g.idle <= 0 {
		return
	}
	now := g.now()
	g.mu.Lock()
	if now.Sub(g.lastSweep) < g.idle/2 {
		g.mu.Unlock()
		return
	}
	g.lastSweep = now
	g.mu.Unlock()

	cutoff := now.Add(-g.idle).UnixNano()
	g.breakers.Range(func(k, v any) bool {
		e := v.(*groupEntry)
		if e.lastUsed.Load() < cutoff && e.cb.State() != StateOpen {
			g.breakers.CompareAndDelete(k, v)
		}
		return true
	})
}

// States returns the current state of every breaker, keyed by name.
func (g *BreakerGroup) States() map[string]State {
	out := make(map[string]State)
	g.breakers.Range(func(k, v any) bool {
		out[k.(string)] = v.(*groupEntry).cb.State()
		return true
	})
	return out
}

// Open returns the sorted names of breakers currently open.
func (g *BreakerGroup) Open() []string {
	var names []string
	for name, state := range g.States() {
		if state == StateOpen {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
