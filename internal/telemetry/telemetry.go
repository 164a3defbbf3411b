// Package telemetry installs the OpenTelemetry tracer provider. Components
// create spans through the global tracer, which stays a no-op when
// telemetry is disabled.
package telemetry

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/concordance/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used across the service.
const TracerName = "github.com/mohammad-safakhou/concordance"

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer { return otel.Tracer(TracerName) }

// Telemetry owns the installed tracer provider.
type Telemetry struct {
	tp *sdktrace.TracerProvider
}

// Setup exports spans over OTLP/gRPC when cfg.Enabled is set.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}
	name := cfg.ServiceName
	if name == "" {
		name = "concordance"
	}
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp init: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", name),
			attribute.String("service.namespace", "concordance"),
		)),
	)
	otel.SetTracerProvider(tp)
	return &Telemetry{tp: tp}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	if err := t.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("trace shutdown: %w", err)
	}
	return nil
}
