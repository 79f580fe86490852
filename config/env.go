package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joeshaw/envdecode"
)

// Overrides are the REALMGATE_* variables applied after the file. Scalars
// are read as text so that an unset variable is distinguishable from a
// zero value. Lists are separated by ";".
type Overrides struct {
	Addr string `env:"REALMGATE_ADDR"`

	ServicesToAuthenticate    []string `env:"REALMGATE_SERVICES_AUTHENTICATE"`
	ServicesToNotAuthenticate []string `env:"REALMGATE_SERVICES_PUBLIC"`

	Discovery         string   `env:"REALMGATE_REALMS_DISCOVERY"`
	AllowInsecureHTTP string   `env:"REALMGATE_REALMS_ALLOW_INSECURE_HTTP"`
	TrustedIssuers    []string `env:"REALMGATE_REALMS_TRUSTED_ISSUERS"`
	DecoderTTL        string   `env:"REALMGATE_REALMS_DECODER_TTL"`
	FetchTimeout      string   `env:"REALMGATE_REALMS_FETCH_TIMEOUT"`

	LogLevel        string `env:"REALMGATE_LOG_LEVEL"`
	TracingExporter string `env:"REALMGATE_TRACING_EXPORTER"`
	MetricsExporter string `env:"REALMGATE_METRICS_EXPORTER"`
}

// ApplyEnv decodes Overrides from the environment and applies them to c.
func ApplyEnv(c *Config) error {
	var o Overrides
	if err := envdecode.Decode(&o); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("config: environment: %w", err)
	}
	return o.Apply(c)
}

// Apply copies every set override onto c.
func (o Overrides) Apply(c *Config) error {
	setString(&c.Server.Addr, o.Addr)
	setList(&c.Gateway.ServicesToAuthenticate, o.ServicesToAuthenticate)
	setList(&c.Gateway.ServicesToNotAuthenticate, o.ServicesToNotAuthenticate)
	setList(&c.Realms.TrustedIssuers, o.TrustedIssuers)
	setString(&c.Observability.LogLevel, o.LogLevel)

	if o.TracingExporter != "" {
		c.Observability.Tracing.Exporter = o.TracingExporter
		c.Observability.Tracing.Enabled = o.TracingExporter != "none"
	}
	if o.MetricsExporter != "" {
		c.Observability.Metrics.Exporter = o.MetricsExporter
		c.Observability.Metrics.Enabled = o.MetricsExporter != "none"
	}

	if err := setBool(&c.Realms.Discovery, "REALMGATE_REALMS_DISCOVERY", o.Discovery); err != nil {
		return err
	}
	if err := setBool(&c.Realms.AllowInsecureHTTP, "REALMGATE_REALMS_ALLOW_INSECURE_HTTP", o.AllowInsecureHTTP); err != nil {
		return err
	}
	if err := setDuration(&c.Realms.DecoderTTL, "REALMGATE_REALMS_DECODER_TTL", o.DecoderTTL); err != nil {
		return err
	}
	return setDuration(&c.Realms.Fetch.Timeout, "REALMGATE_REALMS_FETCH_TIMEOUT", o.FetchTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

func setBool(dst *bool, name, v string) error {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	*dst = d
	return nil
}
