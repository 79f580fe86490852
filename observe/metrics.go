package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricAuthAttempts   = "realmgate.auth.attempts"
	MetricAuthDuration   = "realmgate.auth.duration_ms"
	MetricDecoderBuilds  = "realmgate.decoder.builds"
	MetricGuardDecisions = "realmgate.guard.decisions"
)

// Metrics records gateway metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAttempt records one authentication attempt. kind is empty on
	// success.
	RecordAttempt(ctx context.Context, outcome, kind string, duration time.Duration)

	// RecordDecoderBuild records one verifier build for a realm.
	RecordDecoderBuild(ctx context.Context, result string)

	// RecordDecision records one path guard decision.
	RecordDecision(ctx context.Context, action, service string)
}

type metricsImpl struct {
	attempts  metric.Int64Counter
	duration  metric.Float64Histogram
	builds    metric.Int64Counter
	decisions metric.Int64Counter
}

// NewMetrics creates the gateway instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	attempts, err := meter.Int64Counter(
		MetricAuthAttempts,
		metric.WithDescription("Authentication attempts by outcome and failure kind"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricAuthDuration,
		metric.WithDescription("Authentication duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	builds, err := meter.Int64Counter(
		MetricDecoderBuilds,
		metric.WithDescription("Per-realm verifier builds by result"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		MetricGuardDecisions,
		metric.WithDescription("Path guard decisions by action"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		attempts:  attempts,
		duration:  duration,
		builds:    builds,
		decisions: decisions,
	}, nil
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, outcome, kind string, duration time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if kind != "" {
		attrs = append(attrs, attribute.String("kind", kind))
	}
	opt := metric.WithAttributes(attrs...)

	m.attempts.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordDecoderBuild(ctx context.Context, result string) {
	m.builds.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metricsImpl) RecordDecision(ctx context.Context, action, service string) {
	attrs := []attribute.KeyValue{attribute.String("action", action)}
	if service != "" {
		attrs = append(attrs, attribute.String("service", service))
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type nopMetrics struct{}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordAttempt(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordDecoderBuild(context.Context, string)                  {}
func (nopMetrics) RecordDecision(context.Context, string, string)              {}
