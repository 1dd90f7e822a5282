// Package telemetry wires OpenTelemetry tracing around node lifecycle
// events, grounded on PromptKit's runtime/telemetry package (Tracer lookup
// scoped to an instrumentation name/version, TracerProvider construction
// left to the embedding application).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	// InstrumentationName is the OTel instrumentation scope name.
	InstrumentationName = "github.com/speechflow/engine"
	// InstrumentationVersion is the OTel instrumentation scope version.
	InstrumentationVersion = "0.1.0"
)

// Tracer returns a named tracer from the given TracerProvider. If tp is nil,
// the global provider (a no-op by default) is used, so tracing is always
// safe to call even when no exporter has been configured.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(InstrumentationVersion))
}

// NewTracerProvider creates an in-process TracerProvider carrying no span
// processor; callers who want spans shipped somewhere attach one via
// sdktrace.WithBatcher(exporter) before use. This mirrors runtime/telemetry's
// NewTracerProvider shape without hardcoding an OTLP endpoint, since the
// engine itself has no opinion on where traces go.
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(semconv.ServiceName(serviceName))
	all := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	return sdktrace.NewTracerProvider(all...)
}

// SpanForOpen starts a span covering a node's Open() call.
func SpanForOpen(ctx context.Context, tracer trace.Tracer, nodeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "node.open", trace.WithAttributes(attribute.String("node.id", nodeID)))
}

// SpanForClose starts a span covering a node's Close() call.
func SpanForClose(ctx context.Context, tracer trace.Tracer, nodeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "node.close", trace.WithAttributes(attribute.String("node.id", nodeID)))
}

// SpanForChunk starts a span covering processing of a single chunk.
func SpanForChunk(ctx context.Context, tracer trace.Tracer, nodeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "node.process_chunk", trace.WithAttributes(attribute.String("node.id", nodeID)))
}
