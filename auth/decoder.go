package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/realmgate/cache"
	"github.com/jonwraymond/realmgate/observe"
)

// CachedDecoder is a built verifier together with its realm.
type CachedDecoder struct {
	RegistrationID string
	Verifier       Verifier
	CreatedAt      time.Time
}

// DecoderCacheConfig configures a DecoderCache.
type DecoderCacheConfig struct {
	// TTL expires built verifiers so that rotated keys are refetched.
	// Zero keeps them for the process lifetime.
	TTL time.Duration

	// BuildTimeout bounds one build. The build runs detached from the
	// requests waiting on it, so this is the only deadline it has besides
	// the fetch timeout.
	BuildTimeout time.Duration

	// Clock overrides time.Now.
	Clock func() time.Time

	// Instrumentation records build results.
	Instrumentation *observe.Instrumentation
}

// DecoderCache memoizes one Verifier per registration ID.
//
// Reads of a built verifier do not lock. The first requests for an ID share
// a single build; a failed build is returned to every waiter and not
// remembered. A waiter whose context ends stops waiting without cancelling
// the build.
type DecoderCache struct {
	builder      DecoderBuilder
	store        *cache.Memory[string, *CachedDecoder]
	group        singleflight.Group
	buildTimeout time.Duration
	now          func() time.Time
	inst         *observe.Instrumentation
}

// NewDecoderCache creates a decoder cache over builder.
func NewDecoderCache(builder DecoderBuilder, config DecoderCacheConfig) *DecoderCache {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Instrumentation == nil {
		config.Instrumentation = observe.NopInstrumentation()
	}
	return &DecoderCache{
		builder:      builder,
		store:        cache.NewMemory[string, *CachedDecoder](cache.Policy{TTL: config.TTL}, cache.WithClock(config.Clock)),
		buildTimeout: config.BuildTimeout,
		now:          config.Clock,
		inst:         config.Instrumentation,
	}
}

// Get returns the verifier for reg, building it on first use.
func (c *DecoderCache) Get(ctx context.Context, reg Registration) (Verifier, error) {
	if d, ok := c.store.Get(reg.ID); ok {
		return d.Verifier, nil
	}

	ch := c.group.DoChan(reg.ID, func() (any, error) {
		// A flight that started after the previous one stored its result.
		if d, ok := c.store.Get(reg.ID); ok {
			return d, nil
		}
		return c.build(context.WithoutCancel(ctx), reg)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CachedDecoder).Verifier, nil
	}
}

func (c *DecoderCache) build(ctx context.Context, reg Registration) (*CachedDecoder, error) {
	if c.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.buildTimeout)
		defer cancel()
	}

	v, err := c.builder.Build(ctx, reg)
	if err == nil && v == nil {
		err = errors.New("builder returned no verifier")
	}
	c.inst.DecoderBuild(ctx, err)
	if err != nil {
		return nil, fmt.Errorf("build verifier for %q: %w", reg.ID, err)
	}

	d := &CachedDecoder{RegistrationID: reg.ID, Verifier: v, CreatedAt: c.now()}
	c.store.Set(reg.ID, d)
	return d, nil
}

// Lookup returns the cached decoder for id without building.
func (c *DecoderCache) Lookup(id string) (*CachedDecoder, bool) {
	return c.store.Get(id)
}

// Invalidate drops the verifier for id; the next Get rebuilds it.
func (c *DecoderCache) Invalidate(id string) {
	c.store.Delete(id)
}

// Len returns the number of cached verifiers.
func (c *DecoderCache) Len() int {
	return c.store.Len()
}

// IDs returns the registration IDs with a cached verifier.
func (c *DecoderCache) IDs() []string {
	return c.store.Keys()
}
