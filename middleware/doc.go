// Package middleware provides pre-built middleware for lmstfy workers.
//
// All middleware in this package follows the lmstfy MiddlewareFunc signature
// and can be added to a worker via [lmstfy.Worker.Use] or [lmstfy.Worker.UseNamed].
//
// # Logging
//
// The [Logging] middleware emits structured log entries via [log/slog] for every
// job execution, including job ID, queue, remaining tries, duration and error:
//
//	worker.UseNamed("logging", middleware.Logging(slog.Default()))
//
// # Recovery
//
// The [Recovery] middleware turns a panicking handler into a failed job, which
// the server redelivers after its TTR instead of the worker process dying:
//
//	worker.UseNamed("recovery", middleware.Recovery(slog.Default()))
//
// # Metrics
//
// The [Metrics] middleware reports execution metrics through the [MetricsRecorder]
// interface. For OpenTelemetry use the middleware/otel package instead.
package middleware
