// Package telemetry wires OpenTelemetry tracing for a CLI run.
package telemetry

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmarques/orgsync/faults"
)

const (
	TracerName       = "github.com/crmarques/orgsync"
	endpointEnvVar   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	traceEndpointVar = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
)

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

// Setup installs an OTLP/gRPC tracer provider when an OTLP endpoint is
// configured through the standard environment variables. Otherwise the
// global (no-op) provider is returned.
func Setup(ctx context.Context, serviceVersion string) (trace.TracerProvider, Shutdown, error) {
	if !exporterConfigured() {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, nil, faults.NewTypedError(faults.InternalError, "failed to create OTLP trace exporter", err)
	}

	provider := NewTracerProvider(exporter, serviceVersion)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider, provider.Shutdown, nil
}

// NewTracerProvider batches spans to exporter under the orgsync service name.
func NewTracerProvider(exporter sdktrace.SpanExporter, serviceVersion string) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", "orgsync"),
			attribute.String("service.version", serviceVersion),
		)),
	)
}

// Tracer returns the orgsync tracer of provider, falling back to the global
// provider when nil.
func Tracer(provider trace.TracerProvider) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(TracerName)
}

func exporterConfigured() bool {
	return strings.TrimSpace(os.Getenv(endpointEnvVar)) != "" ||
		strings.TrimSpace(os.Getenv(traceEndpointVar)) != ""
}
