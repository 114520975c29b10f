package otelbridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AdaptivMCP/toolcore"
	"github.com/AdaptivMCP/toolcore/otelbridge"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s should be an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestObserver_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := otelbridge.New(provider.Meter("test"), nil)
	require.NoError(t, err)

	obs.ObserveCall(toolcore.Observation{
		CallID: "c1", Tool: "get_file", Status: toolcore.StatusOK,
		Duration: 120 * time.Millisecond,
	})
	obs.ObserveCall(toolcore.Observation{
		CallID: "c2", Tool: "merge_pr", Status: toolcore.StatusError,
		Category: toolcore.CategoryAuthorization, Origin: toolcore.OriginInternal,
		Mutating: true, Duration: 10 * time.Millisecond,
	})

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, rm, "toolcore.calls"))
	assert.Equal(t, int64(1), sumValue(t, rm, "toolcore.errors"))
}

func TestObserver_LatencyHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := otelbridge.New(provider.Meter("test"), nil)
	require.NoError(t, err)
	obs.ObserveCall(toolcore.Observation{Tool: "echo", Status: toolcore.StatusOK, Duration: 250 * time.Millisecond})

	rm := collect(t, reader)
	var found bool
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "toolcore.latency" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			assert.InDelta(t, 0.25, hist.DataPoints[0].Sum, 0.001)
			found = true
		}
	}
	assert.True(t, found, "latency histogram should be recorded")
}

func TestObserver_Spans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = meterProvider.Shutdown(context.Background()) })

	recorder := tracetest.NewSpanRecorder()
	traceProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = traceProvider.Shutdown(context.Background()) })

	obs, err := otelbridge.New(meterProvider.Meter("test"), traceProvider.Tracer("test"))
	require.NoError(t, err)

	obs.ObserveCall(toolcore.Observation{Tool: "echo", Status: toolcore.StatusOK, Duration: time.Millisecond})
	obs.ObserveCall(toolcore.Observation{
		Tool: "merge_pr", Status: toolcore.StatusError,
		Category: toolcore.CategoryUpstream, Duration: time.Millisecond,
	})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "tool.dispatch", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, string(toolcore.CategoryUpstream), spans[1].Status().Description)
	assert.Contains(t, spans[1].Attributes(), attribute.String("tool_name", "merge_pr"))
}
