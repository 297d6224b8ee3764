// Package telemetry wires OpenTelemetry tracing around the Evaluation
// Manager. Grounded on intelligencedev-manifold's internal/telemetry
// (otel.go): a Config struct plus a Setup(ctx, cfg) that returns a
// shutdown func, adapted to the subset of the otel stack actually
// present in go.mod — no OTLP exporter or semconv dependency is pulled
// in here; Setup installs a TracerProvider with no span processor
// whether or not Enabled is set, so spans are not exported anywhere and
// the engine runs without a collector configured.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the minimal settings needed to name spans for this
// service; there is no exporter endpoint here since no OTLP exporter
// package is part of this module's dependency set (spec expansion's
// domain-stack wiring note — see DESIGN.md).
type Config struct {
	Enabled     bool
	ServiceName string
}

// Setup installs a global TracerProvider and returns a shutdown
// function the caller should defer. The provider is installed (so
// Tracer() calls elsewhere never need a nil check) and carries no span
// processor; cfg.Enabled does not change this.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	if !cfg.Enabled {
		return tp.Shutdown, nil
	}

	return tp.Shutdown, nil
}

// Tracer returns the named tracer used throughout the evaluation engine.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
