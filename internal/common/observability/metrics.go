package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OpenTelemetry meter and tracer used by the
// pipeline and the workers.
type Observability struct {
	serviceName    string
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	stageDuration  otelmetric.Float64Histogram
}

type options struct {
	metrics        bool
	jaegerEndpoint string
	spanProcessors []sdktrace.SpanProcessor
}

// Option configures New.
type Option func(*options)

// WithJaeger exports spans to a Jaeger collector endpoint.
func WithJaeger(endpoint string) Option {
	return func(o *options) { o.jaegerEndpoint = endpoint }
}

// WithSpanProcessor registers an extra span processor (tests use a recorder).
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithoutMetrics skips the prometheus exporter. The exporter registers with
// the default prometheus registry, which accepts it only once per process.
func WithoutMetrics() Option {
	return func(o *options) { o.metrics = false }
}

func New(serviceName string, opts ...Option) *Observability {
	o := &options{metrics: true}
	for _, opt := range opts {
		opt(o)
	}

	obs := &Observability{serviceName: serviceName}

	if o.metrics {
		exporter, err := prometheus.New()
		if err != nil {
			log.Printf("Failed to create Prometheus exporter: %v", err)
		} else {
			obs.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
			otel.SetMeterProvider(obs.meterProvider)
			obs.initInstruments(obs.meterProvider.Meter(serviceName))
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	if o.jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(o.jaegerEndpoint)))
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
		}
	}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	if len(tpOpts) > 0 {
		res := resource.NewSchemaless(attribute.String("service.name", serviceName))
		tpOpts = append(tpOpts, sdktrace.WithResource(res))
		obs.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
		obs.tracer = obs.tracerProvider.Tracer(serviceName)
	} else {
		obs.tracer = otel.Tracer(serviceName)
	}

	return obs
}

func (o *Observability) initInstruments(meter otelmetric.Meter) {
	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.stageDuration, _ = meter.Float64Histogram(
		"pipeline.stage.duration",
		otelmetric.WithDescription("Duration of a single pipeline stage"),
		otelmetric.WithUnit("ms"),
	)
}

// StartSpan opens a span named after a pipeline stage or job.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("narrative-workers")
	if o != nil && o.tracer != nil {
		tracer = o.tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if o == nil || o.stageDuration == nil {
		return
	}
	o.stageDuration.Record(ctx, float64(duration.Microseconds())/1000.0, otelmetric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
