package lmstfy

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/lmstfy/lmstfy-go"

// telemetry bundles the logger, tracer and instruments shared by every
// request a client makes.
type telemetry struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newTelemetry(cfg clientConfig) *telemetry {
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, _ := meter.Int64Counter("lmstfy.client.requests",
		metric.WithDescription("Number of requests issued, by operation and outcome"),
	)
	duration, _ := meter.Float64Histogram("lmstfy.client.duration",
		metric.WithDescription("Request round-trip duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &telemetry{
		logger:   logger,
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}
}

// start opens a client span for op.
func (t *telemetry) start(ctx context.Context, op operation, namespace, queue string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "lmstfy "+op.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("lmstfy.op", op.name),
			attribute.String("lmstfy.namespace", namespace),
			attribute.String("lmstfy.queue", queue),
			attribute.String("http.request.method", op.method),
		),
	)
}

// finish records the result of one round trip on span, metrics and log.
// status is 0 when the request never produced a response.
func (t *telemetry) finish(ctx context.Context, span trace.Span, op operation, queue string, status int, out outcome, elapsed time.Duration, err error) {
	defer span.End()

	durationMS := float64(elapsed.Microseconds()) / 1000.0
	attrs := metric.WithAttributes(
		attribute.String("lmstfy.op", op.name),
		attribute.String("lmstfy.outcome", out.String()),
	)
	t.requests.Add(ctx, 1, attrs)
	t.duration.Record(ctx, durationMS, attrs)

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	span.SetAttributes(attribute.String("lmstfy.outcome", out.String()))

	logAttrs := []slog.Attr{
		slog.String("lmstfy.op", op.name),
		slog.String("lmstfy.queue", queue),
		slog.Int("http.status", status),
		slog.String("outcome", out.String()),
		slog.Float64("duration_ms", durationMS),
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		logAttrs = append(logAttrs, slog.String("error", err.Error()))
		t.logger.LogAttrs(ctx, slog.LevelDebug, "request failed", logAttrs...)
		return
	}
	span.SetStatus(codes.Ok, "")
	t.logger.LogAttrs(ctx, slog.LevelDebug, "request completed", logAttrs...)
}
