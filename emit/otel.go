package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OtelEmitter bridges execution events onto OpenTelemetry span events.
//
// Each event is attached to the currently active span if the caller
// supplied one via WithSpanContext; otherwise events are recorded as
// zero-duration spans under the emitter's tracer, so traces capture the
// execution timeline even without an enclosing span.
type OtelEmitter struct {
	tracer trace.Tracer
	ctx    context.Context
}

// NewOtelEmitter creates an emitter using the named tracer from the
// global tracer provider.
func NewOtelEmitter(tracerName string) *OtelEmitter {
	if tracerName == "" {
		tracerName = "graphbit"
	}
	return &OtelEmitter{
		tracer: otel.Tracer(tracerName),
		ctx:    context.Background(),
	}
}

// WithSpanContext returns a copy of the emitter that attaches events to
// the span in the given context.
func (o *OtelEmitter) WithSpanContext(ctx context.Context) *OtelEmitter {
	return &OtelEmitter{tracer: o.tracer, ctx: ctx}
}

// Emit implements Emitter.
func (o *OtelEmitter) Emit(event Event) {
	attrs := []attribute.KeyValue{
		attribute.String("workflow.id", event.WorkflowID),
	}
	if event.NodeID != "" {
		attrs = append(attrs, attribute.String("node.id", event.NodeID))
	}
	if event.NodeName != "" {
		attrs = append(attrs, attribute.String("node.name", event.NodeName))
	}
	for key, value := range event.Meta {
		attrs = append(attrs, attribute.String("meta."+key, fmt.Sprintf("%v", value)))
	}

	if span := trace.SpanFromContext(o.ctx); span.SpanContext().IsValid() {
		span.AddEvent(event.Msg, trace.WithAttributes(attrs...))
		return
	}

	_, span := o.tracer.Start(o.ctx, event.Msg, trace.WithAttributes(attrs...))
	span.End()
}
