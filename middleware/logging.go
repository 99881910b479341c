package middleware

import (
	"log/slog"
	"time"

	lmstfy "github.com/lmstfy/lmstfy-go"
)

// Logging returns middleware that logs job execution using the provided
// [slog.Logger]. Each job produces two entries: one at start (DEBUG) and
// one at completion (INFO on success, ERROR on failure).
//
// Log attributes include job.id, job.queue, job.remain_tries, job.size and
// duration_ms (on completion).
func Logging(logger *slog.Logger) lmstfy.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) error {
		attrs := []slog.Attr{
			slog.String("job.id", ctx.Job.ID),
			slog.String("job.queue", ctx.Queue),
			slog.Int64("job.remain_tries", ctx.Job.RemainTries),
			slog.Int("job.size", len(ctx.Job.Data)),
		}

		logger.LogAttrs(ctx.Context(), slog.LevelDebug, "job started", attrs...)

		start := time.Now()
		err := next(ctx)
		duration := time.Since(start)

		attrs = append(attrs, slog.Float64("duration_ms", float64(duration.Microseconds())/1000.0))

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(ctx.Context(), slog.LevelError, "job failed", attrs...)
		} else {
			logger.LogAttrs(ctx.Context(), slog.LevelInfo, "job completed", attrs...)
		}

		return err
	}
}
