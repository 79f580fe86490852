package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Instrumentation bundles the tracer, metrics and logger used by the
// authentication pipeline and the path guard.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Stage propagates the span context to fn.
//   - Errors: errors returned by fn are recorded and returned unchanged.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation. Nil components are
// replaced with no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrumentation{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumentationFromObserver builds an Instrumentation from an Observer.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopInstrumentation returns an Instrumentation that records nothing.
func NopInstrumentation() *Instrumentation {
	return NewInstrumentation(nil, nil, nil)
}

// Logger returns the configured logger.
func (i *Instrumentation) Logger() Logger { return i.logger }

// Stage runs fn inside a span named after stage.
func (i *Instrumentation) Stage(ctx context.Context, stage string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := i.tracer.StartStage(ctx, stage, attrs...)
	err := fn(ctx)
	i.tracer.EndStage(span, err)
	return err
}

// Attempt records the outcome of one authentication.
func (i *Instrumentation) Attempt(ctx context.Context, kind string, started time.Time) {
	outcome := "authenticated"
	if kind != "" {
		outcome = "failed"
	}
	i.metrics.RecordAttempt(ctx, outcome, kind, time.Since(started))
}

// DecoderBuild records a verifier build result ("ok" or "error").
func (i *Instrumentation) DecoderBuild(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	i.metrics.RecordDecoderBuild(ctx, result)
}

// Decision records a path guard decision.
func (i *Instrumentation) Decision(ctx context.Context, action, service string) {
	i.metrics.RecordDecision(ctx, action, service)
}
