package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"quoterm/internal/bus"
)

// Span attribute keys for dispatch spans.
const (
	AttrEventKind = "event.kind"
	AttrListeners = "event.listeners"
)

// Observer opens one span per Publish call. Dispatch is synchronous, so
// nested (re-entrant) publishes pair up LIFO on a small span stack.
type Observer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans []trace.Span
}

// NewObserver creates a dispatch observer. tracer must not be nil; the
// caller skips adding the observer when tracing is disabled.
func NewObserver(tracer trace.Tracer) *Observer {
	return &Observer{tracer: tracer}
}

// BeforeDispatch implements bus.Observer.
func (o *Observer) BeforeDispatch(e bus.Event, listeners int) {
	_, span := o.tracer.Start(context.Background(), "bus.publish "+string(e.Kind()),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String(AttrEventKind, string(e.Kind())),
		attribute.Int(AttrListeners, listeners),
	)

	o.mu.Lock()
	o.spans = append(o.spans, span)
	o.mu.Unlock()
}

// AfterDispatch implements bus.Observer.
func (o *Observer) AfterDispatch(bus.Event, int) {
	o.mu.Lock()
	if len(o.spans) == 0 {
		o.mu.Unlock()
		return
	}
	span := o.spans[len(o.spans)-1]
	o.spans = o.spans[:len(o.spans)-1]
	o.mu.Unlock()

	span.End()
}
