package health

import (
	"context"
	"fmt"
	"slices"

	"github.com/jonwraymond/realmgate/resilience"
)

// RealmsCheckerConfig configures a RealmsChecker.
type RealmsCheckerConfig struct {
	// Cached returns the number of realms with a built verifier.
	Cached func() int

	// Breakers are the per-realm fetch breakers. Optional.
	Breakers *resilience.BreakerGroup
}

// RealmsChecker reports the state of realm trust material.
type RealmsChecker struct {
	config RealmsCheckerConfig
}

// NewRealmsChecker creates a realms checker.
func NewRealmsChecker(config RealmsCheckerConfig) *RealmsChecker {
	if config.Cached == nil {
		config.Cached = func() int { return 0 }
	}
	return &RealmsChecker{config: config}
}

// Name returns "realms".
func (c *RealmsChecker) Name() string { return "realms" }

// Check is degraded while any realm breaker is open or probing.
func (c *RealmsChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	details := map[string]any{"cached_verifiers": c.config.Cached()}

	var open, probing []string
	if c.config.Breakers != nil {
		states := c.config.Breakers.States()
		details["breakers"] = len(states)
		open = c.config.Breakers.Open()
		for name, st := range states {
			if st == resilience.StateHalfOpen {
				probing = append(probing, name)
			}
		}
		slices.Sort(probing)
	}

	if len(open) > 0 || len(probing) > 0 {
		details["open_realms"] = open
		details["probing_realms"] = probing
		return Degraded(fmt.Sprintf("%d realm(s) unavailable", len(open)+len(probing))).WithDetails(details)
	}
	return Healthy("all realms reachable").WithDetails(details)
}

var _ Checker = (*RealmsChecker)(nil)
