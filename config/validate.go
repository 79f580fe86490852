package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/jonwraymond/realmgate/auth"
	"github.com/jonwraymond/realmgate/guard"
)

// Validate reports every problem found, joined, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		bad("server.addr is empty")
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		bad("server timeouts must not be negative")
	}

	g := c.Gateway
	services := map[string]bool{}
	for _, name := range g.ServicesToNotAuthenticate {
		if err := guard.ValidateServiceName(name); err != nil {
			bad("gateway.service_names_to_not_authenticate: %v", err)
		}
		services[name] = true
	}
	for _, name := range g.ServicesToAuthenticate {
		if err := guard.ValidateServiceName(name); err != nil {
			bad("gateway.service_names_to_authenticate: %v", err)
		}
		if services[name] {
			bad("gateway: service %q is listed as both public and authenticated", name)
		}
		services[name] = true
	}
	for name, raw := range g.Upstreams {
		if !services[name] {
			bad("gateway.upstreams: %q is not a configured service", name)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			bad("gateway.upstreams.%s: %q is not an absolute http(s) URL", name, raw)
		}
	}
	if strings.ContainsAny(g.ChallengeRealm, "\"\\\r\n") {
		bad("gateway.challenge_realm contains quotes or control characters")
	}

	r := c.Realms
	if !strings.HasPrefix(r.TokenPath, "/") || !strings.HasPrefix(r.JWKSPath, "/") {
		bad("realms.token_path and realms.jwks_path must start with /")
	}
	for _, alg := range r.Algorithms {
		if !slices.Contains(auth.DefaultAlgorithms, alg) {
			bad("realms.algorithms: %q is not an asymmetric JWS algorithm", alg)
		}
	}
	if r.Leeway < 0 || r.DecoderTTL < 0 || r.DiscoveryTTL < 0 {
		bad("realms durations must not be negative")
	}
	if r.MaxKeySetBytes < 0 {
		bad("realms.max_key_set_bytes must not be negative")
	}
	f := r.Fetch
	if f.Timeout < 0 || f.BuildTimeout < 0 || f.BreakerReset < 0 || f.BreakerIdle < 0 {
		bad("realms.fetch durations must not be negative")
	}
	if f.MaxConcurrent < 0 || f.Burst < 0 || f.BreakerFailures < 0 || f.RetryAttempts < 0 || f.Rate < 0 {
		bad("realms.fetch limits must not be negative")
	}

	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		bad("observability: %v", err)
	}

	return errors.Join(errs...)
}
