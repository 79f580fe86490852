package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal",
			cfg:  Config{ServiceName: "realmgate"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "bad tracing exporter",
			cfg: Config{
				ServiceName: "realmgate",
				Tracing:     TracingConfig{Enabled: true, Exporter: "jaeger"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "bad sample pct",
			cfg: Config{
				ServiceName: "realmgate",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{
				ServiceName: "realmgate",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{
				ServiceName: "realmgate",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not validated",
			cfg: Config{
				ServiceName: "realmgate",
				Tracing:     TracingConfig{Exporter: "bogus"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "realmgate"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("NewObserver() returned nil components")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()

	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "realmgate",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
		Writer:      &buf,
		Registerer:  reg,
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	inst, err := InstrumentationFromObserver(obs)
	if err != nil {
		t.Fatalf("InstrumentationFromObserver() error = %v", err)
	}
	inst.DecoderBuild(context.Background(), nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "realmgate_decoder_builds_total" {
			found = true
		}
	}
	if !found {
		t.Error("realmgate_decoder_builds_total not exported to prometheus registry")
	}

	obs.Logger().Info(context.Background(), "hello")
	if buf.Len() == 0 {
		t.Error("logger did not write to configured writer")
	}
}
