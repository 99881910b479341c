package lmstfy

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// --- Client Options ---

// clientConfig holds the resolved configuration for a Client.
type clientConfig struct {
	httpClient     *http.Client
	transport      Transport
	connectTimeout time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	requestID      func() string
}

// ClientOption configures the lmstfy client.
type ClientOption func(*clientConfig)

// WithHTTPClient sets a custom net/http.Client. The client's own timeouts
// replace WithConnectTimeout and WithRequestTimeout.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTransport replaces the HTTP transport entirely. Mostly useful in tests.
func WithTransport(t Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithConnectTimeout bounds TCP connection setup. Default: 1.5 seconds.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.connectTimeout = d
	}
}

// WithRequestTimeout bounds a whole request, including the time a consume
// call blocks on the server. Default: 630 seconds.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.requestTimeout = d
	}
}

// WithLogger sets a structured logger for request-level events.
// Pass nil to disable logging (the default).
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry TracerProvider used for request
// spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry MeterProvider used for request
// metrics. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(c *clientConfig) {
		c.meterProvider = mp
	}
}

// WithRequestIDFunc overrides how X-Request-ID values are generated.
func WithRequestIDFunc(fn func() string) ClientOption {
	return func(c *clientConfig) {
		c.requestID = fn
	}
}

func resolveClientConfig(opts []ClientOption) clientConfig {
	cfg := clientConfig{
		connectTimeout: defaultConnectTimeout,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// --- Worker Options ---

// workerConfig holds the resolved configuration for a Worker.
type workerConfig struct {
	queues         []string
	concurrency    int
	ttr            int
	consumeTimeout int
	gracePeriod    time.Duration
	backoff        BackoffPolicy
	logger         *slog.Logger
}

// WorkerOption configures the worker.
type WorkerOption func(*workerConfig)

// WithQueues sets the queues the worker consumes from.
// The first queue has the highest priority.
func WithQueues(queues ...string) WorkerOption {
	return func(c *workerConfig) {
		c.queues = queues
	}
}

// WithConcurrency sets how many jobs are processed in parallel.
// Default: 1.
func WithConcurrency(n int) WorkerOption {
	return func(c *workerConfig) {
		c.concurrency = n
	}
}

// WithTTR sets the reservation lease, in seconds, requested for every
// consumed job. Default: 120.
func WithTTR(seconds int) WorkerOption {
	return func(c *workerConfig) {
		c.ttr = seconds
	}
}

// WithConsumeTimeout sets how long, in seconds, each consume call blocks
// waiting for a job. Default: 5.
func WithConsumeTimeout(seconds int) WorkerOption {
	return func(c *workerConfig) {
		c.consumeTimeout = seconds
	}
}

// WithGracePeriod sets the maximum time to wait for active jobs during shutdown.
// Default: 25 seconds.
func WithGracePeriod(d time.Duration) WorkerOption {
	return func(c *workerConfig) {
		c.gracePeriod = d
	}
}

// WithPollInterval sets the pause after the first failed consume call.
// Later failures back off from there, see WithBackoff.
// Default: 1 second.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(c *workerConfig) {
		c.backoff.InitialInterval = d
	}
}

// WithBackoff replaces the backoff policy applied to failed consume calls.
func WithBackoff(p BackoffPolicy) WorkerOption {
	return func(c *workerConfig) {
		c.backoff = p
	}
}

// WithWorkerLogger sets a structured logger for the worker's operational
// events: consume failures, ack failures and handler errors.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(c *workerConfig) {
		c.logger = logger
	}
}

func resolveWorkerConfig(opts []WorkerOption) workerConfig {
	cfg := workerConfig{
		concurrency:    1,
		ttr:            120,
		consumeTimeout: 5,
		gracePeriod:    25 * time.Second,
		backoff:        DefaultBackoffPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
