package otel

import (
	"context"
	"testing"
	"time"

	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes("flowdesk", config.TelemetryConfig{})
	assert.Equal(t, []attribute.KeyValue{attribute.String("service.name", "flowdesk")}, attrs)

	attrs = resourceAttributes("flowdesk", config.TelemetryConfig{Environment: "staging", Version: "1.4.2"})
	assert.Contains(t, attrs, attribute.String("deployment.environment", "staging"))
	assert.Contains(t, attrs, attribute.String("service.version", "1.4.2"))
}

func TestExportInterval(t *testing.T) {
	assert.Equal(t, 30*time.Second, exportInterval("30s"))
	assert.Equal(t, defaultInterval, exportInterval(""))
	assert.Equal(t, defaultInterval, exportInterval("soon"))
	assert.Equal(t, defaultInterval, exportInterval("-1s"))
}

func TestInitWithUnreachableCollector(t *testing.T) {
	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
		otel.SetTextMapPropagator(prevProp)
	})

	shutdown, err := Init(context.Background(), ServiceName, config.TelemetryConfig{
		Endpoint: "127.0.0.1:1",
		Interval: "1h",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = shutdown(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not honour its context")
	}
}
