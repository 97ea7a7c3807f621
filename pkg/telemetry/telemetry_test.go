package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	provider, err := Setup(context.Background(), Config{
		ServiceName: "nodemesh-test",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)
	assert.Equal(t, "nodemesh-test", provider.ServiceName())

	_, span := otel.Tracer(TracerDiscovery).Start(context.Background(), "Discovery.Announce")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "Discovery.Announce")
}

func TestSetup_OTLPMetrics(t *testing.T) {
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/metrics" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	provider, err := Setup(context.Background(), Config{
		Exporter:        ExporterNone,
		MetricsEndpoint: strings.TrimPrefix(collector.URL, "http://"),
		Insecure:        true,
	})
	require.NoError(t, err)

	metrics, err := NewRegistryMetrics(provider.Meter)
	require.NoError(t, err)
	metrics.RecordRoute(context.Background())

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.GreaterOrEqual(t, exports.Load(), int32(1))
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"otlp without endpoint", Config{Exporter: ExporterOTLP}},
		{"unknown exporter", Config{Exporter: "zipkin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSetup_NoneExporterDefaultsServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")

	provider, err := Setup(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	assert.Equal(t, InstrumentationName, provider.ServiceName())
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRegistryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewRegistryMetrics(mp.Meter(InstrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAnnouncement(ctx, "taxis", true)
	m.RecordAnnouncement(ctx, "taxis", false)
	m.RecordPruned(ctx, 3)
	m.RecordPruned(ctx, 0)
	m.RecordRegistration(ctx, nil)
	m.RecordRegistration(ctx, errors.New("duplicate"))
	m.RecordRoute(ctx)

	known, online := 4, 2
	reg, err := m.ObserveNodes("discovery", func() int { return known }, func() int { return online })
	require.NoError(t, err)
	defer reg.Unregister()

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["nodemesh.discovery.announcements"]))
	assert.Equal(t, int64(3), sumOf(t, data["nodemesh.discovery.pruned"]))
	assert.Equal(t, int64(2), sumOf(t, data["nodemesh.network.registrations"]))
	assert.Equal(t, int64(1), sumOf(t, data["nodemesh.network.routes"]))

	gauge, ok := data["nodemesh.nodes.online"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}

func TestRegistryMetrics_NilIsNoOp(t *testing.T) {
	var m *RegistryMetrics
	ctx := context.Background()

	m.RecordAnnouncement(ctx, "taxis", true)
	m.RecordPruned(ctx, 1)
	m.RecordRegistration(ctx, nil)
	m.RecordRoute(ctx)

	_, err := m.ObserveNodes("x", func() int { return 0 }, func() int { return 0 })
	assert.Error(t, err)
}

func TestCorrelationMiddleware(t *testing.T) {
	t.Run("generates ids", func(t *testing.T) {
		var gotCorrelation, gotRequest string
		handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCorrelation = GetCorrelationID(r.Context())
			gotRequest = GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, gotCorrelation)
		assert.NotEmpty(t, gotRequest)
		assert.Equal(t, gotCorrelation, rec.Header().Get(HeaderCorrelationID))
		assert.Equal(t, gotRequest, rec.Header().Get(HeaderRequestID))
	})

	t.Run("propagates incoming ids", func(t *testing.T) {
		handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "corr-1", GetCorrelationID(r.Context()))
			assert.Equal(t, "req-1", GetRequestID(r.Context()))
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderCorrelationID, "corr-1")
		req.Header.Set(HeaderRequestID, "req-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "corr-1", rec.Header().Get(HeaderCorrelationID))
	})
}

func TestEnrichLogFields(t *testing.T) {
	assert.Empty(t, EnrichLogFields(context.Background(), nil))

	ctx := WithCorrelation(context.Background(), "corr-1", "req-1")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx = trace.ContextWithSpanContext(ctx, spanCtx)

	fields := EnrichLogFields(ctx, map[string]interface{}{"node_id": "n1"})
	assert.Equal(t, "n1", fields["node_id"])
	assert.Equal(t, "corr-1", fields["correlation_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, ok := tp.Tracer("test").Start(context.Background(), "ok")
	RecordError(ok, nil, "unused")
	ok.End()

	_, failed := tp.Tracer("test").Start(context.Background(), "failed")
	RecordError(failed, errors.New("boom"), "publish failed")
	failed.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "publish failed", spans[1].Status().Description)
}
