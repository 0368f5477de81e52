package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson-developer-cloud/go-sdk/internal/transport"
	"github.com/watson-developer-cloud/go-sdk/internal/version"
)

// InstrumentationName names the tracer and meter.
const InstrumentationName = "github.com/watson-developer-cloud/go-sdk"

// Attribute keys specific to Watson operations.
const (
	ServiceKey   = attribute.Key("watson.service")
	OperationKey = attribute.Key("watson.operation")
	MutationKey  = attribute.Key("watson.mutation")
	RequestIDKey = attribute.Key("watson.request_id")
)

var _ transport.Hooks = (*OTelHooks)(nil)

// OTelHooks implements transport.Hooks on OpenTelemetry. Each operation gets
// an internal span and each HTTP request a client span beneath it. Request
// counts and latencies are recorded as metrics.
type OTelHooks struct {
	tracer     trace.Tracer
	operations metric.Int64Counter
	requests   metric.Int64Counter
	duration   metric.Float64Histogram
}

type operationSpanKey struct{}
type requestSpanKey struct{}

// NewOTelHooks creates hooks on the given providers. Nil providers fall back
// to the global ones, which are no-ops until the host program installs real
// providers.
func NewOTelHooks(tp trace.TracerProvider, mp metric.MeterProvider) (*OTelHooks, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	h := &OTelHooks{
		tracer: tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version.Version)),
	}
	meter := mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(version.Version))

	var err error
	h.operations, err = meter.Int64Counter("watson.client.operations",
		metric.WithDescription("Service operations dispatched"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}
	h.requests, err = meter.Int64Counter("watson.client.requests",
		metric.WithDescription("HTTP requests sent to Watson services"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}
	h.duration, err = meter.Float64Histogram("watson.client.request.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return h, nil
}

func operationAttrs(op transport.OperationInfo) []attribute.KeyValue {
	return []attribute.KeyValue{
		ServiceKey.String(op.Service),
		OperationKey.String(op.Operation),
	}
}

func (h *OTelHooks) OnOperationStart(ctx context.Context, op transport.OperationInfo) context.Context {
	attrs := append(operationAttrs(op), MutationKey.Bool(op.IsMutation))
	ctx, span := h.tracer.Start(ctx, op.Service+"."+op.Operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, operationSpanKey{}, span)
}

func (h *OTelHooks) OnOperationEnd(ctx context.Context, op transport.OperationInfo, err error, _ time.Duration) {
	attrs := operationAttrs(op)
	if err != nil {
		attrs = append(attrs, semconv.ErrorType(err))
	}
	h.operations.Add(ctx, 1, metric.WithAttributes(attrs...))

	span, ok := ctx.Value(operationSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *OTelHooks) OnRequestStart(ctx context.Context, info transport.RequestInfo) context.Context {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(info.Method),
		semconv.URLFull(scrubURL(info.URL)),
	}
	if info.RequestID != "" {
		attrs = append(attrs, RequestIDKey.String(info.RequestID))
	}
	if op, ok := transport.OperationFromContext(ctx); ok {
		attrs = append(attrs, operationAttrs(op)...)
	}
	ctx, span := h.tracer.Start(ctx, info.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(ctx, requestSpanKey{}, span)
}

func (h *OTelHooks) OnRequestEnd(ctx context.Context, info transport.RequestInfo, result transport.RequestResult) {
	attrs := []attribute.KeyValue{semconv.HTTPRequestMethodKey.String(info.Method)}
	if op, ok := transport.OperationFromContext(ctx); ok {
		attrs = append(attrs, ServiceKey.String(op.Service))
	}
	switch {
	case result.Error != nil:
		attrs = append(attrs, semconv.ErrorType(result.Error))
	case result.StatusCode >= 400:
		attrs = append(attrs, semconv.ErrorTypeKey.String(strconv.Itoa(result.StatusCode)))
	}
	if result.StatusCode != 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(result.StatusCode))
	}
	set := metric.WithAttributes(attrs...)
	h.requests.Add(ctx, 1, set)
	h.duration.Record(ctx, float64(result.Duration)/float64(time.Millisecond), set)

	span, ok := ctx.Value(requestSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if result.StatusCode != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(result.StatusCode))
	}
	switch {
	case result.Error != nil:
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, result.Error.Error())
	case result.StatusCode >= 400:
		span.SetStatus(codes.Error, strconv.Itoa(result.StatusCode))
	}
	span.End()
}
