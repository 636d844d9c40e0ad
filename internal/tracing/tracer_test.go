package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err, "disabled config should never fail")
	require.NotNil(t, provider)
	require.False(t, provider.Enabled())

	// The no-op tracer still hands out usable spans.
	ctx, span := provider.Tracer().Start(context.Background(), "op.register")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_FileExporter(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")

	provider, err := NewProvider(Config{
		Enabled:    true,
		Exporter:   "file",
		Endpoint:   tracePath,
		SampleRate: 1.0,
	})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "op.register")
	sc := span.SpanContext()
	require.True(t, sc.IsValid(), "recorded span should carry a real span context")
	require.True(t, sc.TraceID().IsValid())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))

	_, err = os.Stat(tracePath)
	require.NoError(t, err, "trace file should exist after shutdown")
}

func TestNewProvider_FileExporterDefaultsWhenUnset(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")

	// Empty exporter name falls back to the file exporter.
	provider, err := NewProvider(Config{Enabled: true, Endpoint: tracePath})
	require.NoError(t, err)
	require.True(t, provider.Enabled())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterMissingEndpoint(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "endpoint")
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: "stdout"})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	// No spans recorded, so shutdown flushes nothing to stdout.
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "unsupported exporter")
}

func TestNewProvider_SampleRateClamped(t *testing.T) {
	for _, rate := range []float64{0, -0.5, 3.0} {
		provider, err := NewProvider(Config{
			Enabled:    true,
			Exporter:   "file",
			Endpoint:   filepath.Join(t.TempDir(), "traces.jsonl"),
			SampleRate: rate,
		})
		require.NoError(t, err, "rate %v should clamp, not fail", rate)
		require.NoError(t, provider.Shutdown(context.Background()))
	}
}

func TestProvider_ChildSpansShareTraceID(t *testing.T) {
	provider, err := NewProvider(Config{
		Enabled:  true,
		Exporter: "file",
		Endpoint: filepath.Join(t.TempDir(), "traces.jsonl"),
	})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	tracer := provider.Tracer()
	ctx, parent := tracer.Start(context.Background(), "op.import")
	_, child := tracer.Start(ctx, "op.register")

	require.Equal(t,
		parent.SpanContext().TraceID(),
		child.SpanContext().TraceID(),
		"child span should continue the parent trace")

	child.End()
	parent.End()
}
