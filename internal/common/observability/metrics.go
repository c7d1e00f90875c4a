package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OpenTelemetry meter and tracer used by the dispatch pipeline.
// A zero value is safe to use and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	runCounter      otelmetric.Int64Counter
	runDuration     otelmetric.Float64Histogram
	deliveryCounter otelmetric.Int64Counter
}

// New registers the otel Prometheus exporter on the default registerer, so the instruments
// show up on the same /metrics endpoint as the promauto collectors.
func New(serviceName string) (*Observability, error) {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

func NewWithRegisterer(serviceName string, reg prometheus.Registerer) (*Observability, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return &Observability{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	mp := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(mp)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	meter := mp.Meter(serviceName)

	runCounter, err := meter.Int64Counter(
		"dispatch.runs",
		otelmetric.WithDescription("Number of dispatch runs"),
	)
	if err != nil {
		return &Observability{}, err
	}

	runDuration, err := meter.Float64Histogram(
		"dispatch.duration",
		otelmetric.WithDescription("Dispatch run duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{}, err
	}

	deliveryCounter, err := meter.Int64Counter(
		"dispatch.deliveries",
		otelmetric.WithDescription("Delivery attempts by channel and status"),
	)
	if err != nil {
		return &Observability{}, err
	}

	return &Observability{
		meterProvider:   mp,
		tracerProvider:  tp,
		tracer:          tp.Tracer(serviceName),
		runCounter:      runCounter,
		runDuration:     runDuration,
		deliveryCounter: deliveryCounter,
	}, nil
}

// StartSpan opens a span named name. Without a tracer it returns ctx and a no-op span.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordDispatchRun(ctx context.Context, duration time.Duration, subscribers, attempts int) {
	if o == nil || o.runCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.Int("subscribers", subscribers),
		attribute.Int("attempts", attempts),
	)
	o.runCounter.Add(ctx, 1, attrs)
	o.runDuration.Record(ctx, float64(duration.Milliseconds()))
}

func (o *Observability) RecordDelivery(ctx context.Context, method, status string) {
	if o == nil || o.deliveryCounter == nil {
		return
	}
	o.deliveryCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
}

// TraceID returns the hex trace id carried by ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var firstErr error
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
