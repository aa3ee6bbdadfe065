package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
)

// SpanRecorder is a SpanExporter that keeps finished spans in memory so tests
// can assert on names, attributes and parentage.
type SpanRecorder struct {
	mu    sync.Mutex
	spans []trace.ReadOnlySpan
}

var _ trace.SpanExporter = (*SpanRecorder)(nil)

func NewSpanRecorder() *SpanRecorder {
	return &SpanRecorder{}
}

func (r *SpanRecorder) ExportSpans(_ context.Context, spans []trace.ReadOnlySpan) error {
	r.mu.Lock()
	r.spans = append(r.spans, spans...)
	r.mu.Unlock()
	return nil
}

func (r *SpanRecorder) Shutdown(context.Context) error { return nil }

// Spans returns the recorded spans matching every filter, in export order.
func (r *SpanRecorder) Spans(filters ...func(trace.ReadOnlySpan) bool) []trace.ReadOnlySpan {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []trace.ReadOnlySpan
next:
	for _, span := range r.spans {
		for _, keep := range filters {
			if !keep(span) {
				continue next
			}
		}
		out = append(out, span)
	}
	return out
}

func (r *SpanRecorder) SpansNamed(name string) []trace.ReadOnlySpan {
	return r.Spans(func(s trace.ReadOnlySpan) bool { return s.Name() == name })
}

// SpansWithOperation matches the "operation" attribute set by repositories.
func (r *SpanRecorder) SpansWithOperation(operation string) []trace.ReadOnlySpan {
	return r.Spans(func(s trace.ReadOnlySpan) bool {
		value, ok := SpanAttribute(s, AttrOperation)
		return ok && value.AsString() == operation
	})
}

func (r *SpanRecorder) Reset() {
	r.mu.Lock()
	r.spans = nil
	r.mu.Unlock()
}

func (r *SpanRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spans)
}

// SpanAttribute looks up a single attribute on a finished span.
func SpanAttribute(span trace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// InitTestTracing exports synchronously so spans are visible as soon as they end.
func InitTestTracing(serviceName, serviceVersion string, recorder *SpanRecorder) *trace.TracerProvider {
	return trace.NewTracerProvider(
		trace.WithSyncer(recorder),
		trace.WithResource(newResource(serviceName, serviceVersion)),
	)
}
