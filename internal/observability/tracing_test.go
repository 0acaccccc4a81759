package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	provider, shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	require.NoError(t, shutdown(context.Background()))

	_, span := provider.Tracer("test").Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracing_Stdout(t *testing.T) {
	ctx := context.Background()
	provider, shutdown, err := InitTracing(ctx, TracingConfig{Enabled: true, Stdout: true, ServiceName: "test"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })

	_, ok := provider.(*sdktrace.TracerProvider)
	require.True(t, ok)

	_, span := otel.Tracer("test").Start(ctx, "op")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
