// Package tracing provides the OpenTelemetry setup for registry commands.
// Every CLI invocation builds one Provider from config; when tracing is
// disabled the provider hands out a no-op tracer and costs nothing.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// serviceName identifies this binary in exported traces.
const serviceName = "trackreg"

// Config controls the provider for a single invocation.
//
// Endpoint is overloaded per exporter: the collector address for "otlp"
// and the output path for "file". The "stdout" exporter ignores it.
type Config struct {
	Enabled    bool
	Exporter   string // "file", "stdout", or "otlp"
	Endpoint   string
	SampleRate float64 // fraction of traces kept; out-of-range values mean sample everything
	Insecure   bool    // plaintext gRPC for the otlp exporter
}

// Provider owns the tracer provider lifecycle. A disabled Provider carries
// only a no-op tracer and has no SDK state to shut down.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a provider from cfg and installs it as the global
// otel tracer provider when enabled.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1.0
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
		// NewSchemaless avoids schema version conflicts with resource.Default().
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(sdk)

	return &Provider{sdk: sdk, tracer: sdk.Tracer(serviceName)}, nil
}

// newExporter builds the span exporter selected by cfg.Exporter.
// An empty exporter name means "file" so that enabling tracing with no
// further config still lands somewhere inspectable.
func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "file", "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("file exporter needs an endpoint path")
		}
		return NewFileExporter(cfg.Endpoint)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter %q", cfg.Exporter)
	}
}

// Tracer returns the tracer for creating spans. Safe to call on a disabled
// provider; spans are then no-ops.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are actually recorded and exported.
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}

// Shutdown flushes pending spans. Call it before process exit so the last
// batch is not lost.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
