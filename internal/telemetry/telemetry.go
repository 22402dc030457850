// Package telemetry provides OpenTelemetry tracing for backend calls
// (backend.Client.Call opens the only spans). It is disabled (a no-op tracer) unless a Settings
// with IsEnabled is supplied, so a deployment with no collector configured
// pays no tracing overhead.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const TracerName = "drone-nlp-gateway"

// Settings configures whether and how spans are recorded.
type Settings struct {
	IsEnabled bool
	Tracer    trace.Tracer
}

func DefaultSettings() *Settings {
	return &Settings{IsEnabled: false}
}

// GetTracer returns settings.Tracer if set, the global tracer when enabled,
// or a no-op tracer otherwise.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if settings.Tracer != nil {
		return settings.Tracer
	}
	return otel.Tracer(TracerName)
}

// SpanOptions names a span and attaches attributes at start.
type SpanOptions struct {
	Name       string
	Attributes []attribute.KeyValue
}

// RecordSpan starts a span, runs fn, records any error on the span, and
// ends it before returning.
func RecordSpan[T any](ctx context.Context, tracer trace.Tracer, opts SpanOptions, fn func(context.Context, trace.Span) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name, trace.WithAttributes(opts.Attributes...))
	defer span.End()

	result, err := fn(ctx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}
