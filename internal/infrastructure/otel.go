package infrastructure

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServiceName identifies the pipeline in emitted spans.
	ServiceName    = "seqforge"
	ServiceVersion = "1.0.0"
)

// TracingProviders holds the tracer provider and the tracer used for
// per-stage pipeline spans.
type TracingProviders struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
}

// InitializeTracing sets up an OpenTelemetry tracer provider with a
// stdout exporter. The pipeline is a batch job, so spans go to the
// process output rather than a collector; pass enabled=false to get a
// no-op tracer instead.
func InitializeTracing(enabled bool) (*TracingProviders, error) {
	if !enabled {
		return &TracingProviders{Tracer: otel.Tracer(ServiceName)}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &TracingProviders{
		TracerProvider: tp,
		Tracer:         tp.Tracer(ServiceName),
	}, nil
}

// Shutdown flushes and stops the tracer provider.
func (t *TracingProviders) Shutdown(ctx context.Context) error {
	if t.TracerProvider == nil {
		return nil
	}
	return t.TracerProvider.Shutdown(ctx)
}
