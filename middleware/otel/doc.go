// Package otel provides OpenTelemetry middleware for lmstfy workers.
//
// # Tracing
//
// The [Tracing] middleware creates a consumer span for every job execution
// with the attributes lmstfy.job.id, lmstfy.job.queue and
// lmstfy.job.remain_tries. The span context is handed to the handler
// through [lmstfy.JobContext.Context]:
//
//	worker.UseNamed("tracing", otel.Tracing(
//	    otel.WithTracerProvider(tp),
//	))
//
// # Metrics
//
// The [Metrics] middleware records job execution counters and a duration
// histogram:
//
//	worker.UseNamed("metrics", otel.Metrics(
//	    otel.WithMeterProvider(mp),
//	))
//
// Client requests are instrumented separately, see [lmstfy.WithTracerProvider].
package otel
