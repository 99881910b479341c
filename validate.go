package lmstfy

import "strings"

const (
	// MaxConsumeTimeout is the longest a consume call may block, in seconds.
	MaxConsumeTimeout = 600

	queueSeparator = ","
)

func validateQueue(op, queue string) error {
	if queue == "" {
		return paramError(op, "queue name can't be empty")
	}
	if strings.Contains(queue, queueSeparator) {
		return paramError(op, "queue name %q must not contain %q", queue, queueSeparator)
	}
	if strings.Contains(queue, "/") {
		return paramError(op, "queue name %q must not contain %q", queue, "/")
	}
	return nil
}

func validateJobID(op, jobID string) error {
	if jobID == "" {
		return paramError(op, "job id can't be empty")
	}
	return nil
}

// validatePublishParams checks ttl, tries and delay for a publish.
// A positive ttl that does not outlive the delay is rejected because
// the job would expire before it ever becomes ready.
func validatePublishParams(queue string, ttl, tries, delay int) error {
	if err := validateQueue(opPublish.name, queue); err != nil {
		return err
	}
	if ttl < 0 {
		return paramError(opPublish.name, "ttl(time to live) should be >= 0")
	}
	if tries <= 0 {
		return paramError(opPublish.name, "tries should be > 0")
	}
	if delay < 0 {
		return paramError(opPublish.name, "delay should be >= 0")
	}
	if ttl > 0 && delay > 0 && ttl <= delay {
		return paramError(opPublish.name, "ttl(%d) should be greater than delay(%d), or the job would never be consumed", ttl, delay)
	}
	return nil
}

func validateConsumeParams(op string, ttr, timeout int) error {
	if ttr <= 0 {
		return paramError(op, "ttr(time to run) should be > 0")
	}
	if timeout < 0 || timeout > MaxConsumeTimeout {
		return paramError(op, "timeout should be >= 0 && <= %d", MaxConsumeTimeout)
	}
	return nil
}

func validateQueues(op string, queues []string) error {
	if len(queues) == 0 {
		return paramError(op, "consume at least one queue")
	}
	for _, q := range queues {
		if err := validateQueue(op, q); err != nil {
			return err
		}
	}
	return nil
}

func validateRespawnParams(queue string, limit, ttl int) error {
	if err := validateQueue(opRespawnDeadLetter.name, queue); err != nil {
		return err
	}
	if limit < 0 {
		return paramError(opRespawnDeadLetter.name, "limit should be >= 0")
	}
	if ttl < 0 {
		return paramError(opRespawnDeadLetter.name, "ttl should be >= 0")
	}
	return nil
}
