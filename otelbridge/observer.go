// Package otelbridge exports dispatcher observations into OpenTelemetry
// metrics and traces. It is optional: the core has no OpenTelemetry
// dependency on its hot path beyond the Observer interface.
package otelbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AdaptivMCP/toolcore"
)

// Observer implements toolcore.Observer on top of an OpenTelemetry meter and
// tracer. Pass it to the Dispatcher with toolcore.WithObserver.
type Observer struct {
	tracer trace.Tracer

	calls   metric.Int64Counter
	errors  metric.Int64Counter
	latency metric.Float64Histogram
}

// New creates an Observer bound to the provided meter and tracer. tracer may
// be nil to emit metrics only.
func New(meter metric.Meter, tracer trace.Tracer) (*Observer, error) {
	calls, err := meter.Int64Counter(
		"toolcore.calls",
		metric.WithDescription("Number of dispatched tool calls"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter(
		"toolcore.errors",
		metric.WithDescription("Number of failed tool calls"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolcore.latency",
		metric.WithDescription("Tool call latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Observer{tracer: tracer, calls: calls, errors: errs, latency: latency}, nil
}

// ObserveCall records one finished dispatch.
func (o *Observer) ObserveCall(obs toolcore.Observation) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", obs.Tool),
		attribute.String("status", string(obs.Status)),
		attribute.Bool("mutating", obs.Mutating),
	}
	if obs.Category != "" {
		attrs = append(attrs, attribute.String("category", string(obs.Category)))
	}
	if obs.Origin != "" {
		attrs = append(attrs, attribute.String("origin", string(obs.Origin)))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.calls.Add(ctx, 1, options)
	o.latency.Record(ctx, obs.Duration.Seconds(), options)
	if obs.Status == toolcore.StatusError {
		o.errors.Add(ctx, 1, options)
	}

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "tool.dispatch", trace.WithAttributes(attrs...))
	switch obs.Status {
	case toolcore.StatusError:
		span.SetStatus(codes.Error, string(obs.Category))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ toolcore.Observer = (*Observer)(nil)
