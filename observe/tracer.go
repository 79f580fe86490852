package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Authentication stage names. Spans are named "auth.<stage>".
const (
	StageExtract = "extract"
	StageResolve = "resolve"
	StageDecode  = "decode"
	StageVerify  = "verify"
)

// SpanName returns the span name for an authentication stage.
func SpanName(stage string) string {
	return "auth." + stage
}

// Tracer opens one span per authentication stage.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndStage must be best-effort and must not panic.
type Tracer interface {
	StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	EndStage(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("auth.stage", stage))
	return t.tracer.Start(ctx, SpanName(stage),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndStage(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
