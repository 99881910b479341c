package lmstfy

import "context"

// PeekDeadLetter returns the oldest job in queue's dead letter without
// changing it.
func (c *Client) PeekDeadLetter(ctx context.Context, queue string) (*Job, error) {
	if err := validateQueue(opPeekDeadLetter.name, queue); err != nil {
		return nil, err
	}
	return c.peek(ctx, opPeekDeadLetter, queue, queuePath(queue)+"/deadletter")
}

// RespawnDeadLetter moves up to limit dead-lettered jobs back into the
// live queue with a fresh ttl (seconds, 0 = never expires) and returns
// how many were moved.
func (c *Client) RespawnDeadLetter(ctx context.Context, queue string, limit, ttl int) (int, error) {
	if err := validateRespawnParams(queue, limit, ttl); err != nil {
		return 0, err
	}
	query := intQuery(map[string]int{"limit": limit, "ttl": ttl})
	rt, err := c.do(ctx, opRespawnDeadLetter, queue, queuePath(queue)+"/deadletter", query, nil)
	if err != nil {
		return 0, err
	}
	count, err := decodeCount(rt.Body)
	if err != nil {
		return 0, rt.malformed(opRespawnDeadLetter, err)
	}
	return count, nil
}
