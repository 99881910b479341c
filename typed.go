package lmstfy

import (
	"encoding/json"
	"fmt"
)

// TypedHandlerFunc is a handler that receives the job payload decoded
// from JSON into T.
type TypedHandlerFunc[T any] func(ctx JobContext, payload T) error

// RegisterTyped registers a handler for queue whose job data is JSON.
// A payload that does not decode into T fails the job like any other
// handler error, so it is redelivered until its tries run out and then
// lands in the dead letter for inspection.
//
// Example:
//
//	type EmailPayload struct {
//	    To      string `json:"to"`
//	    Subject string `json:"subject"`
//	}
//
//	lmstfy.RegisterTyped(worker, "emails", func(ctx lmstfy.JobContext, p EmailPayload) error {
//	    return send(p.To, p.Subject)
//	})
func RegisterTyped[T any](w *Worker, queue string, handler TypedHandlerFunc[T]) {
	w.Register(queue, func(ctx JobContext) error {
		var payload T
		if err := json.Unmarshal(ctx.Job.Data, &payload); err != nil {
			return fmt.Errorf("lmstfy: decode job %s from %s into %T: %w", ctx.Job.ID, queue, payload, err)
		}
		return handler(ctx, payload)
	})
}
