package middleware

import (
	"time"

	lmstfy "github.com/lmstfy/lmstfy-go"
)

// MetricsRecorder receives job execution metrics. Implement it to connect
// any metrics backend.
type MetricsRecorder interface {
	// JobStarted is called when a handler begins.
	JobStarted(queue string)

	// JobCompleted is called when a handler returns nil.
	JobCompleted(queue string, duration time.Duration)

	// JobFailed is called when a handler returns an error. remainTries is
	// the job's budget left; zero means the job is headed for the dead letter.
	JobFailed(queue string, remainTries int64, duration time.Duration)
}

// Metrics returns middleware that reports every execution to recorder.
func Metrics(recorder MetricsRecorder) lmstfy.MiddlewareFunc {
	return func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
		recorder.JobStarted(ctx.Queue)

		start := time.Now()
		err := next(ctx)
		duration := time.Since(start)

		if err != nil {
			recorder.JobFailed(ctx.Queue, ctx.Job.RemainTries, duration)
		} else {
			recorder.JobCompleted(ctx.Queue, duration)
		}

		return err
	}
}
