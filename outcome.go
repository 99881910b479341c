package lmstfy

import "net/http"

// operation describes how one client call maps onto the wire and how its
// response statuses are interpreted.
type operation struct {
	name   string
	method string

	// success is the only status that yields a result.
	success int

	// emptyOnNotFound marks the blocking consume family, where 404 means
	// "no job became ready within the timeout".
	emptyOnNotFound bool
}

var (
	opPublish            = operation{name: "publish", method: http.MethodPut, success: http.StatusCreated}
	opConsume            = operation{name: "consume", method: http.MethodGet, success: http.StatusOK, emptyOnNotFound: true}
	opAck                = operation{name: "ack", method: http.MethodDelete, success: http.StatusNoContent}
	opGetJob             = operation{name: "get_job", method: http.MethodGet, success: http.StatusOK}
	opQueueSize          = operation{name: "queue_size", method: http.MethodGet, success: http.StatusOK}
	opPeekQueue          = operation{name: "peek_queue", method: http.MethodGet, success: http.StatusOK}
	opPeekDeadLetter     = operation{name: "peek_deadletter", method: http.MethodGet, success: http.StatusOK}
	opRespawnDeadLetter  = operation{name: "respawn_deadletter", method: http.MethodPut, success: http.StatusOK}
	opConsumeMultiQueues = operation{name: "consume_multi_queues", method: http.MethodGet, success: http.StatusOK, emptyOnNotFound: true}
)

// outcome is the result class of a single response.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeEmpty
	outcomeError
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeEmpty:
		return "empty"
	default:
		return "error"
	}
}

// classify maps a response status to exactly one outcome for op.
func classify(op operation, status int) outcome {
	switch {
	case status == op.success:
		return outcomeSuccess
	case status == http.StatusNotFound && op.emptyOnNotFound:
		return outcomeEmpty
	default:
		return outcomeError
	}
}
