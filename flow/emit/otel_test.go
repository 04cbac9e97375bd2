package emit

import (
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTelEmitter(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	emitter := NewOTelEmitter(provider.Tracer("test"))

	emitter.Emit(Event{
		ExecutionID: "exec-1",
		Step:        3,
		NodeID:      "sum",
		Msg:         MsgNodeCompleted,
		Meta:        map[string]any{"duration_ms": int64(12), "route": "true"},
	})
	emitter.Emit(Event{
		ExecutionID: "exec-1",
		Step:        4,
		NodeID:      "bad",
		Msg:         MsgNodeFailed,
		Meta:        map[string]any{"error": "boom"},
	})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	t.Run("span name and attributes", func(t *testing.T) {
		span := spans[0]
		if span.Name() != MsgNodeCompleted {
			t.Errorf("expected span name %q, got %q", MsgNodeCompleted, span.Name())
		}

		attrs := make(map[string]any, len(span.Attributes()))
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		if attrs["execution_id"] != "exec-1" {
			t.Errorf("expected execution_id attribute, got %v", attrs)
		}
		if attrs["node_id"] != "sum" {
			t.Errorf("expected node_id attribute, got %v", attrs)
		}
		if attrs["meta.route"] != "true" {
			t.Errorf("expected meta.route attribute, got %v", attrs)
		}
	})

	t.Run("error meta sets span status", func(t *testing.T) {
		span := spans[1]
		if span.Status().Description != "boom" {
			t.Errorf("expected error status, got %+v", span.Status())
		}
		if len(span.Events()) == 0 {
			t.Error("expected a recorded error event")
		}
	})
}
