package lmstfy

import (
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		op     operation
		status int
		want   outcome
	}{
		{opPublish, http.StatusCreated, outcomeSuccess},
		{opPublish, http.StatusOK, outcomeError},
		{opPublish, http.StatusNotFound, outcomeError},
		{opConsume, http.StatusOK, outcomeSuccess},
		{opConsume, http.StatusNotFound, outcomeEmpty},
		{opConsume, http.StatusInternalServerError, outcomeError},
		{opConsumeMultiQueues, http.StatusOK, outcomeSuccess},
		{opConsumeMultiQueues, http.StatusNotFound, outcomeEmpty},
		{opConsumeMultiQueues, http.StatusBadRequest, outcomeError},
		{opAck, http.StatusNoContent, outcomeSuccess},
		{opAck, http.StatusOK, outcomeError},
		{opAck, http.StatusNotFound, outcomeError},
		{opGetJob, http.StatusOK, outcomeSuccess},
		{opGetJob, http.StatusNotFound, outcomeError},
		{opQueueSize, http.StatusOK, outcomeSuccess},
		{opQueueSize, http.StatusUnauthorized, outcomeError},
		{opPeekQueue, http.StatusOK, outcomeSuccess},
		{opPeekQueue, http.StatusNotFound, outcomeError},
		{opPeekDeadLetter, http.StatusOK, outcomeSuccess},
		{opPeekDeadLetter, http.StatusNotFound, outcomeError},
		{opRespawnDeadLetter, http.StatusOK, outcomeSuccess},
		{opRespawnDeadLetter, http.StatusCreated, outcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.op.name+"/"+http.StatusText(tt.status), func(t *testing.T) {
			if got := classify(tt.op, tt.status); got != tt.want {
				t.Errorf("classify(%s, %d) = %s, want %s", tt.op.name, tt.status, got, tt.want)
			}
		})
	}
}

// Every status maps to exactly one outcome and only consume calls can
// report an empty result.
func TestClassifyIsTotal(t *testing.T) {
	ops := []operation{
		opPublish, opConsume, opAck, opGetJob, opQueueSize,
		opPeekQueue, opPeekDeadLetter, opRespawnDeadLetter, opConsumeMultiQueues,
	}
	for _, op := range ops {
		successes := 0
		for status := 100; status < 600; status++ {
			out := classify(op, status)
			if out == outcomeSuccess {
				successes++
			}
			if out == outcomeEmpty && !(op.emptyOnNotFound && status == http.StatusNotFound) {
				t.Errorf("%s: status %d classified as empty", op.name, status)
			}
		}
		if successes != 1 {
			t.Errorf("%s: %d success statuses, want 1", op.name, successes)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if outcomeSuccess.String() != "success" || outcomeEmpty.String() != "empty" || outcomeError.String() != "error" {
		t.Error("unexpected outcome names")
	}
}
