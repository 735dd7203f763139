// Package tracing wires OpenTelemetry for the service.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"photocurate/internal/models"
)

const (
	PhotoIDKey     = attribute.Key("photocurate.photo.id")
	VariationIDKey = attribute.Key("photocurate.variation.id")
)

// Setup installs a global tracer provider. The otlp exporter ships spans over
// OTLP/HTTP (endpoint from the standard OTEL_EXPORTER_OTLP_* variables);
// stdout pretty-prints them. When tracing is disabled the global no-op
// provider stays in place. The returned func flushes and shuts the provider
// down.
func Setup(ctx context.Context, cfg models.TracingConfig) (func(context.Context) error, error) {
	const op = "tracing.Setup"

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exporter, err := newExporter(ctx, cfg.Exporter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, kind string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "", "otlp":
		return otlptracehttp.New(ctx)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown exporter %q", kind)
	}
}

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
