package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func TestSpanName(t *testing.T) {
	if got := SpanName(StageVerify); got != "auth.verify" {
		t.Errorf("SpanName(verify) = %q, want auth.verify", got)
	}
}

func TestTracer_StageSpan(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartStage(context.Background(), StageResolve, attribute.String("registration_id", "r1"))
	tr.EndStage(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "auth.resolve" {
		t.Errorf("Name() = %q, want auth.resolve", s.Name())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("Status = %v, want Ok", s.Status().Code)
	}

	attrs := map[attribute.Key]string{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs["auth.stage"] != StageResolve {
		t.Errorf("auth.stage = %q, want %q", attrs["auth.stage"], StageResolve)
	}
	if attrs["registration_id"] != "r1" {
		t.Errorf("registration_id = %q, want r1", attrs["registration_id"])
	}
}

func TestTracer_EndStageRecordsError(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartStage(context.Background(), StageDecode)
	tr.EndStage(span, errors.New("jwks unreachable"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("Status = %v, want Error", s.Status().Code)
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestNopTracer(t *testing.T) {
	tr := NopTracer()
	_, span := tr.StartStage(context.Background(), StageExtract)
	tr.EndStage(span, errors.New("ignored"))
}
