package lmstfy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerState represents the lifecycle state of a worker.
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateRunning   WorkerState = "running"
	WorkerStateTerminate WorkerState = "terminate"
)

// JobContext carries a consumed job into a handler.
type JobContext struct {
	// Job is the reserved job. Job.Data holds the published bytes.
	Job Job

	// Queue is the queue the job was consumed from.
	Queue string

	// ctx is cancelled when the worker's grace period runs out.
	ctx context.Context
}

// Context returns the context.Context for this job execution.
func (jc JobContext) Context() context.Context {
	if jc.ctx == nil {
		return context.Background()
	}
	return jc.ctx
}

// WithContext returns a copy of jc whose Context is ctx. Middleware uses
// it to hand derived contexts, such as a tracing span, to the handler.
func (jc JobContext) WithContext(ctx context.Context) JobContext {
	jc.ctx = ctx
	return jc
}

// NewJobContextForTest creates a JobContext for testing middleware or
// handlers outside a Worker.
func NewJobContextForTest(job Job) JobContext {
	return JobContext{
		Job:   job,
		Queue: job.Queue,
		ctx:   context.Background(),
	}
}

// Worker consumes jobs from one or more queues, runs the handler
// registered for the job's queue and acks the job when the handler
// succeeds. A failed job is not acked: the server redelivers it once its
// TTR lapses, or moves it to the dead letter when no tries remain.
type Worker struct {
	client *Client
	config workerConfig
	logger *slog.Logger

	handlers   map[string]HandlerFunc
	registered []string
	handlersMu sync.RWMutex

	middleware *middlewareChain

	state       atomic.Value // WorkerState
	activeCount atomic.Int64

	// unnamed numbers middleware added through Use. It never decreases so
	// generated names stay unique across RemoveMiddleware calls.
	unnamed atomic.Int64
}

// NewWorker creates a worker that consumes through client.
//
// Example:
//
//	worker := lmstfy.NewWorker(client,
//	    lmstfy.WithQueues("urgent", "normal"),
//	    lmstfy.WithConcurrency(4),
//	)
func NewWorker(client *Client, opts ...WorkerOption) *Worker {
	cfg := resolveWorkerConfig(opts)
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Worker{
		client:     client,
		config:     cfg,
		logger:     logger,
		handlers:   make(map[string]HandlerFunc),
		middleware: newMiddlewareChain(),
	}
	w.state.Store(WorkerStateIdle)
	return w
}

// Register sets the handler for jobs consumed from queue. Without
// WithQueues, queues are consumed with priority in registration order.
func (w *Worker) Register(queue string, handler HandlerFunc) {
	w.handlersMu.Lock()
	defer w.handlersMu.Unlock()
	if _, ok := w.handlers[queue]; !ok {
		w.registered = append(w.registered, queue)
	}
	w.handlers[queue] = handler
}

// Use adds execution middleware to the worker's middleware chain.
//
// Example:
//
//	worker.Use(func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
//	    start := time.Now()
//	    err := next(ctx)
//	    log.Printf("job %s took %s", ctx.Job.ID, time.Since(start))
//	    return err
//	})
func (w *Worker) Use(fn MiddlewareFunc) {
	w.middleware.Add(fmt.Sprintf("middleware-%d", w.unnamed.Add(1)-1), fn)
}

// UseNamed adds a named execution middleware to the worker's middleware chain.
func (w *Worker) UseNamed(name string, fn MiddlewareFunc) {
	w.middleware.Add(name, fn)
}

// RemoveMiddleware drops the named middleware from the chain.
func (w *Worker) RemoveMiddleware(name string) {
	w.middleware.Remove(name)
}

// State returns the current worker lifecycle state.
func (w *Worker) State() WorkerState {
	return w.state.Load().(WorkerState)
}

// ActiveJobs returns the number of jobs currently in a handler.
func (w *Worker) ActiveJobs() int {
	return int(w.activeCount.Load())
}

// queues returns the consume order and checks every queue has a handler.
func (w *Worker) queues() ([]string, error) {
	w.handlersMu.RLock()
	defer w.handlersMu.RUnlock()

	if len(w.handlers) == 0 {
		return nil, fmt.Errorf("lmstfy: no handlers registered")
	}
	queues := w.config.queues
	if len(queues) == 0 {
		queues = append([]string(nil), w.registered...)
	}
	for _, q := range queues {
		if _, ok := w.handlers[q]; !ok {
			return nil, fmt.Errorf("lmstfy: no handler registered for queue %q", q)
		}
	}
	return queues, nil
}

// Start consumes and processes jobs until ctx is cancelled, then waits up
// to the grace period for in-flight handlers before returning.
//
// Example:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
//	defer cancel()
//	if err := worker.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (w *Worker) Start(ctx context.Context) error {
	queues, err := w.queues()
	if err != nil {
		return err
	}
	if err := validateQueues(opConsumeMultiQueues.name, queues); err != nil {
		return err
	}
	if err := validateConsumeParams(opConsumeMultiQueues.name, w.config.ttr, w.config.consumeTimeout); err != nil {
		return err
	}
	if w.config.concurrency < 1 {
		return fmt.Errorf("lmstfy: concurrency must be >= 1, got %d", w.config.concurrency)
	}

	// Handlers outlive ctx by up to the grace period.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	w.state.Store(WorkerStateRunning)
	w.logger.LogAttrs(ctx, slog.LevelInfo, "worker started",
		slog.Any("queues", queues),
		slog.Int("concurrency", w.config.concurrency),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.config.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consumeLoop(ctx, jobCtx, queues)
		}()
	}

	<-ctx.Done()
	w.state.Store(WorkerStateTerminate)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.gracePeriod):
		// Unacked jobs are redelivered by the server after their TTR.
		w.logger.LogAttrs(context.Background(), slog.LevelWarn, "grace period expired",
			slog.Int("active_jobs", w.ActiveJobs()),
		)
		cancelJobs()
	}

	w.logger.LogAttrs(context.Background(), slog.LevelInfo, "worker stopped")
	return nil
}

// consumeLoop reserves one job at a time and runs it to completion.
func (w *Worker) consumeLoop(ctx, jobCtx context.Context, queues []string) {
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.client.ConsumeMultiQueues(ctx, w.config.ttr, w.config.consumeTimeout, queues...)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			pause := w.config.backoff.interval(failures)
			w.logger.LogAttrs(ctx, slog.LevelWarn, "consume failed",
				slog.String("error", err.Error()),
				slog.Int("failures", failures),
				slog.Duration("backoff", pause),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pause):
				continue
			}
		}
		failures = 0
		if job == nil {
			continue
		}

		w.activeCount.Add(1)
		w.processJob(jobCtx, job, queues)
		w.activeCount.Add(-1)
	}
}

// processJob runs a single job through the middleware chain and handler.
func (w *Worker) processJob(ctx context.Context, job *Job, queues []string) {
	if job.Queue == "" && len(queues) == 1 {
		job.Queue = queues[0]
	}

	w.handlersMu.RLock()
	handler, ok := w.handlers[job.Queue]
	w.handlersMu.RUnlock()

	attrs := []slog.Attr{
		slog.String("job.id", job.ID),
		slog.String("job.queue", job.Queue),
		slog.Int64("job.remain_tries", job.RemainTries),
	}
	if job.Queue == "" {
		// Without a queue name the job can neither be routed nor acked.
		attrs = append(attrs, slog.Any("queues", queues))
		w.logger.LogAttrs(ctx, slog.LevelError, "unroutable job: reply carried no queue name", attrs...)
		return
	}
	if !ok {
		w.logger.LogAttrs(ctx, slog.LevelError, "no handler for queue", attrs...)
		return
	}

	jctx := JobContext{
		Job:   *job,
		Queue: job.Queue,
		ctx:   ctx,
	}
	if err := w.middleware.then(handler)(jctx); err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		w.logger.LogAttrs(ctx, slog.LevelWarn, "job failed, left for redelivery", attrs...)
		return
	}

	if err := w.client.Ack(ctx, job.Queue, job.ID); err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		w.logger.LogAttrs(ctx, slog.LevelError, "ack failed", attrs...)
	}
}
