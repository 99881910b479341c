package otel

import (
	"time"

	lmstfy "github.com/lmstfy/lmstfy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/lmstfy/lmstfy-go/middleware/otel"

// Option configures the OTel middleware.
type Option func(*config)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets a custom TracerProvider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider sets a custom MeterProvider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

func resolve(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}
	return cfg
}

// Tracing returns middleware that wraps every job execution in a span
// named "lmstfy.job <queue>". A handler error marks the span as failed.
func Tracing(opts ...Option) lmstfy.MiddlewareFunc {
	tracer := resolve(opts).tracerProvider.Tracer(instrumentationName)

	return func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
		spanCtx, span := tracer.Start(ctx.Context(),
			"lmstfy.job "+ctx.Queue,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(jobAttributes(ctx)...),
		)
		defer span.End()

		err := next(ctx.WithContext(spanCtx))

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}

// Metrics returns middleware that records job execution metrics.
//
// Recorded instruments:
//   - lmstfy.job.started (counter)
//   - lmstfy.job.completed (counter)
//   - lmstfy.job.failed (counter)
//   - lmstfy.job.duration (histogram, milliseconds)
func Metrics(opts ...Option) lmstfy.MiddlewareFunc {
	meter := resolve(opts).meterProvider.Meter(instrumentationName)

	jobStarted, _ := meter.Int64Counter("lmstfy.job.started",
		metric.WithDescription("Number of jobs handed to a handler"),
	)
	jobCompleted, _ := meter.Int64Counter("lmstfy.job.completed",
		metric.WithDescription("Number of jobs whose handler succeeded"),
	)
	jobFailed, _ := meter.Int64Counter("lmstfy.job.failed",
		metric.WithDescription("Number of jobs whose handler failed"),
	)
	jobDuration, _ := meter.Float64Histogram("lmstfy.job.duration",
		metric.WithDescription("Handler execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
		attrs := metric.WithAttributes(
			attribute.String("lmstfy.job.queue", ctx.Queue),
		)

		jobStarted.Add(ctx.Context(), 1, attrs)

		start := time.Now()
		err := next(ctx)
		durationMS := float64(time.Since(start).Microseconds()) / 1000.0

		jobDuration.Record(ctx.Context(), durationMS, attrs)

		if err != nil {
			jobFailed.Add(ctx.Context(), 1, attrs)
		} else {
			jobCompleted.Add(ctx.Context(), 1, attrs)
		}

		return err
	}
}

func jobAttributes(ctx lmstfy.JobContext) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("lmstfy.job.id", ctx.Job.ID),
		attribute.String("lmstfy.job.queue", ctx.Queue),
		attribute.String("lmstfy.job.namespace", ctx.Job.Namespace),
		attribute.Int64("lmstfy.job.remain_tries", ctx.Job.RemainTries),
	}
}
