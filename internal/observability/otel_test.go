package observability

import (
	"context"
	"errors"
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
	"go.opentelemetry.io/otel/trace"

	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

func newTestOTel(t *testing.T) (*OTelHooks, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	h, err := NewOTelHooks(tp, mp)
	require.NoError(t, err)
	return h, recorder, reader
}

// runOTelCall mirrors how the service base and dispatcher drive hooks.
func runOTelCall(h *OTelHooks, result transport.RequestResult, opErr error) {
	opCtx := transport.WithOperation(h.OnOperationStart(context.Background(), translateOp), translateOp)
	reqCtx := h.OnRequestStart(opCtx, translateReq)
	h.OnRequestEnd(reqCtx, translateReq, result)
	h.OnOperationEnd(opCtx, translateOp, opErr, 50*time.Millisecond)
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTelHooksSpans(t *testing.T) {
	h, recorder, _ := newTestOTel(t)

	runOTelCall(h, transport.RequestResult{StatusCode: 200, Duration: 40 * time.Millisecond}, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	req, op := spans[0], spans[1]

	assert.Equal(t, "LanguageTranslator.Translate", op.Name())
	assert.Equal(t, trace.SpanKindInternal, op.SpanKind())
	assert.Equal(t, codes.Unset, op.Status().Code)

	assert.Equal(t, "POST", req.Name())
	assert.Equal(t, trace.SpanKindClient, req.SpanKind())
	assert.Equal(t, op.SpanContext().SpanID(), req.Parent().SpanID(), "request span nests under the operation")

	status, ok := attrValue(req.Attributes(), "http.response.status_code")
	require.True(t, ok)
	assert.EqualValues(t, 200, status.AsInt64())
	id, ok := attrValue(req.Attributes(), RequestIDKey)
	require.True(t, ok)
	assert.Equal(t, "req-1", id.AsString())
	service, ok := attrValue(req.Attributes(), ServiceKey)
	require.True(t, ok)
	assert.Equal(t, "LanguageTranslator", service.AsString())
}

func TestOTelHooksScrubsURL(t *testing.T) {
	h, recorder, _ := newTestOTel(t)
	info := transport.RequestInfo{Method: "GET", URL: "https://iam.example.com/token?apikey=secret&x=1"}

	ctx := h.OnRequestStart(context.Background(), info)
	h.OnRequestEnd(ctx, info, transport.RequestResult{StatusCode: 200})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	full, ok := attrValue(spans[0].Attributes(), "url.full")
	require.True(t, ok)
	assert.NotContains(t, full.AsString(), "secret")
}

func TestOTelHooksErrors(t *testing.T) {
	h, recorder, _ := newTestOTel(t)

	runOTelCall(h, transport.RequestResult{StatusCode: 503}, errors.New("service unavailable"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	req, op := spans[0], spans[1]
	assert.Equal(t, codes.Error, req.Status().Code)
	assert.Equal(t, "503", req.Status().Description)
	assert.Equal(t, codes.Error, op.Status().Code)
	assert.Equal(t, "service unavailable", op.Status().Description)
	require.NotEmpty(t, op.Events())
	assert.Equal(t, "exception", op.Events()[0].Name)
}

func TestOTelHooksNetworkError(t *testing.T) {
	h, recorder, _ := newTestOTel(t)

	runOTelCall(h, transport.RequestResult{Error: errors.New("connection refused")}, errors.New("connection refused"))

	req := recorder.Ended()[0]
	assert.Equal(t, "connection refused", req.Status().Description)
	_, hasStatus := attrValue(req.Attributes(), "http.response.status_code")
	assert.False(t, hasStatus)
}

func TestOTelHooksMetrics(t *testing.T) {
	h, _, reader := newTestOTel(t)

	runOTelCall(h, transport.RequestResult{StatusCode: 200, Duration: 40 * time.Millisecond}, nil)
	runOTelCall(h, transport.RequestResult{StatusCode: 200, Duration: 60 * time.Millisecond}, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, InstrumentationName, rm.ScopeMetrics[0].Scope.Name)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	requests, ok := byName["watson.client.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	assert.EqualValues(t, 2, requests.DataPoints[0].Value)

	ops, ok := byName["watson.client.operations"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, ops.DataPoints, 1)
	assert.EqualValues(t, 2, ops.DataPoints[0].Value)

	latency, ok := byName["watson.client.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, latency.DataPoints, 1)
	assert.EqualValues(t, 2, latency.DataPoints[0].Count)
	assert.InDelta(t, 100.0, latency.DataPoints[0].Sum, 0.001)
}

func TestOTelHooksEndWithoutStart(t *testing.T) {
	h, recorder, _ := newTestOTel(t)

	h.OnRequestEnd(context.Background(), translateReq, transport.RequestResult{StatusCode: 200})
	h.OnOperationEnd(context.Background(), translateOp, nil, time.Millisecond)

	assert.Empty(t, recorder.Ended())
}

func TestNewOTelHooksGlobalProviders(t *testing.T) {
	h, err := NewOTelHooks(nil, nil)
	require.NoError(t, err)
	runOTelCall(h, transport.RequestResult{StatusCode: 200}, nil)
}
