package middleware

import (
	"fmt"
	"log/slog"
	"runtime"

	lmstfy "github.com/lmstfy/lmstfy-go"
)

// Recovery returns middleware that converts a panic in a downstream
// handler into an error. The job is then not acked.
//
// If a logger is provided, the panic value and stack trace are logged at
// ERROR level. Pass nil to disable panic logging.
func Recovery(logger *slog.Logger) lmstfy.MiddlewareFunc {
	return func(ctx lmstfy.JobContext, next lmstfy.HandlerFunc) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)

				if logger != nil {
					logger.LogAttrs(ctx.Context(), slog.LevelError, "job panicked",
						slog.String("job.id", ctx.Job.ID),
						slog.String("job.queue", ctx.Queue),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])),
					)
				}

				retErr = fmt.Errorf("panic in job %s (queue=%s): %v", ctx.Job.ID, ctx.Queue, r)
			}
		}()
		return next(ctx)
	}
}
