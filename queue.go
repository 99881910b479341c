package lmstfy

import "context"

// QueueSize returns the number of ready and delayed jobs in queue.
// Reserved and dead-lettered jobs are not counted.
func (c *Client) QueueSize(ctx context.Context, queue string) (int, error) {
	if err := validateQueue(opQueueSize.name, queue); err != nil {
		return 0, err
	}
	rt, err := c.do(ctx, opQueueSize, queue, queuePath(queue)+"/size", nil, nil)
	if err != nil {
		return 0, err
	}
	size, err := decodeSize(rt.Body)
	if err != nil {
		return 0, rt.malformed(opQueueSize, err)
	}
	return size, nil
}

// PeekQueue returns the job that would be consumed next, without
// reserving it.
func (c *Client) PeekQueue(ctx context.Context, queue string) (*Job, error) {
	if err := validateQueue(opPeekQueue.name, queue); err != nil {
		return nil, err
	}
	return c.peek(ctx, opPeekQueue, queue, queuePath(queue)+"/peek")
}

func (c *Client) peek(ctx context.Context, op operation, queue, path string) (*Job, error) {
	rt, err := c.do(ctx, op, queue, path, nil, nil)
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(rt.Body)
	if err != nil {
		return nil, rt.malformed(op, err)
	}
	c.fill(job, queue)
	return job, nil
}
