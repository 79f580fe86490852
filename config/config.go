package config

import (
	"time"

	"github.com/jonwraymond/realmgate/auth"
	"github.com/jonwraymond/realmgate/guard"
	"github.com/jonwraymond/realmgate/observe"
)

// Config is the complete gateway configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Realms        RealmsConfig        `yaml:"realms"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig lists backend services and where they live.
type GatewayConfig struct {
	// ServicesToAuthenticate are reachable under /api/<name>/** with a
	// verified token.
	ServicesToAuthenticate []string `yaml:"service_names_to_authenticate"`

	// ServicesToNotAuthenticate are reachable under /api/<name>/** without
	// a token.
	ServicesToNotAuthenticate []string `yaml:"service_names_to_not_authenticate"`

	PermitStaticResources bool `yaml:"permit_static_resources"`

	// Upstreams maps a service name to its base URL.
	Upstreams map[string]string `yaml:"upstreams"`

	// ChallengeRealm is advertised in WWW-Authenticate.
	ChallengeRealm string `yaml:"challenge_realm"`
}

// RealmsConfig configures realm onboarding and token verification.
type RealmsConfig struct {
	// Discovery resolves endpoints via OpenID Provider metadata instead of
	// the path convention.
	Discovery bool `yaml:"discovery"`

	TokenPath string `yaml:"token_path"`
	JWKSPath  string `yaml:"jwks_path"`

	AllowInsecureHTTP bool     `yaml:"allow_insecure_http"`
	TrustedIssuers    []string `yaml:"trusted_issuers"`
	DeniedIssuers     []string `yaml:"denied_issuers"`

	Algorithms        []string      `yaml:"algorithms"`
	Leeway            time.Duration `yaml:"leeway"`
	RequireExpiration bool          `yaml:"require_expiration"`

	// DecoderTTL expires cached verifiers. Zero keeps them.
	DecoderTTL     time.Duration `yaml:"decoder_ttl"`
	DiscoveryTTL   time.Duration `yaml:"discovery_ttl"`
	MaxKeySetBytes int64         `yaml:"max_key_set_bytes"`

	Fetch FetchConfig `yaml:"fetch"`
}

// FetchConfig bounds calls to identity providers.
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	BuildTimeout    time.Duration `yaml:"build_timeout"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	Rate            float64       `yaml:"rate"`
	Burst           int           `yaml:"burst"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`
	BreakerIdle     time.Duration `yaml:"breaker_idle"`
	RetryAttempts   int           `yaml:"retry_attempts"`
}

// ObservabilityConfig configures logs, traces and metrics.
type ObservabilityConfig struct {
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`
	LogLevel    string `yaml:"log_level"`

	Tracing struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"sample_pct"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Realms: RealmsConfig{
			TokenPath:         auth.DefaultTokenPath,
			JWKSPath:          auth.DefaultJWKSPath,
			RequireExpiration: true,
			MaxKeySetBytes:    auth.DefaultMaxKeySetBytes,
			Fetch: FetchConfig{
				Timeout:         5 * time.Second,
				BuildTimeout:    10 * time.Second,
				MaxConcurrent:   16,
				Rate:            10,
				Burst:           20,
				BreakerFailures: 5,
				BreakerReset:    30 * time.Second,
				BreakerIdle:     10 * time.Minute,
				RetryAttempts:   2,
			},
		},
		Observability: ObservabilityConfig{
			ServiceName: "realmgate",
			LogLevel:    "info",
		},
	}
	c.Observability.Tracing.Exporter = "none"
	c.Observability.Tracing.SamplePct = 0.1
	c.Observability.Metrics.Enabled = true
	c.Observability.Metrics.Exporter = "prometheus"
	return c
}

// GuardConfig returns the path guard configuration.
func (c *Config) GuardConfig() guard.Config {
	return guard.Config{
		Authenticate:          c.Gateway.ServicesToAuthenticate,
		DoNotAuthenticate:     c.Gateway.ServicesToNotAuthenticate,
		PermitStaticResources: c.Gateway.PermitStaticResources,
	}
}

// IssuerPolicy returns the issuer trust gate.
func (c *Config) IssuerPolicy() auth.IssuerPolicy {
	return auth.IssuerPolicy{Trusted: c.Realms.TrustedIssuers, Denied: c.Realms.DeniedIssuers}
}

// FetchConfig returns the identity provider fetch limits.
func (c *Config) FetchConfig() auth.FetchConfig {
	f := c.Realms.Fetch
	return auth.FetchConfig{
		Timeout:         f.Timeout,
		MaxConcurrent:   f.MaxConcurrent,
		Rate:            f.Rate,
		Burst:           f.Burst,
		BreakerFailures: f.BreakerFailures,
		BreakerReset:    f.BreakerReset,
		BreakerIdle:     f.BreakerIdle,
		RetryAttempts:   f.RetryAttempts,
	}
}

// VerifierConfig returns the token verification settings.
func (c *Config) VerifierConfig() auth.VerifierConfig {
	return auth.VerifierConfig{
		AllowedAlgorithms: c.Realms.Algorithms,
		Leeway:            c.Realms.Leeway,
		RequireExpiration: c.Realms.RequireExpiration,
	}
}

// ObserveConfig returns the telemetry configuration.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observability
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}
