package lmstfy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to one namespace of an lmstfy server over HTTP. It provides
// the job lifecycle operations: publish, consume, ack, inspect, and
// dead letter respawn.
//
// A Client is safe for concurrent use. It never retries a request on its
// own; retries and backoff are left to the caller.
type Client struct {
	namespace string
	token     string
	transport Transport
	telemetry *telemetry
	requestID func() string
}

// NewClient creates a client for the given server address, namespace and
// namespace token.
//
// Example:
//
//	client, err := lmstfy.NewClient("127.0.0.1:7777", "guest", "01CG17XY4HA7CQCMHSS8GTQ")
func NewClient(addr, namespace, token string, opts ...ClientOption) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("lmstfy: server address is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("lmstfy: namespace is required")
	}
	if token == "" {
		return nil, fmt.Errorf("lmstfy: token is required")
	}
	cfg := resolveClientConfig(opts)

	t := cfg.transport
	if t == nil {
		t = newHTTPTransport(buildBaseURL(addr, namespace), cfg)
	}
	requestID := cfg.requestID
	if requestID == nil {
		requestID = uuid.NewString
	}
	return &Client{
		namespace: namespace,
		token:     token,
		transport: t,
		telemetry: newTelemetry(cfg),
		requestID: requestID,
	}, nil
}

// Namespace returns the namespace every operation is scoped to.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close releases the transport handle. A later call re-opens it.
func (c *Client) Close() error {
	return c.transport.Close()
}

// roundTrip is a response together with its classification.
type roundTrip struct {
	*Response
	outcome   outcome
	requestID string
}

// do issues one request for op and maps its status to an outcome. A
// non-nil error is always an *Error of the protocol or transport kind.
func (c *Client) do(ctx context.Context, op operation, queue, path string, query url.Values, body []byte) (*roundTrip, error) {
	requestID := c.requestID()
	ctx, span := c.telemetry.start(ctx, op, c.namespace, queue)
	start := time.Now()

	header := http.Header{}
	header.Set(HeaderToken, c.token)
	header.Set(HeaderRequestID, requestID)
	if body != nil {
		header.Set("Content-Type", payloadContentType)
	}

	resp, err := c.transport.Do(ctx, &Request{
		Method: op.method,
		Path:   path,
		Query:  query,
		Header: header,
		Body:   body,
	})
	if err != nil {
		err = transportError(op.name, requestID, err)
		c.telemetry.logger.LogAttrs(ctx, slog.LevelWarn, "transport failure, connection dropped",
			slog.String("lmstfy.op", op.name),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.telemetry.finish(ctx, span, op, queue, 0, outcomeError, time.Since(start), err)
		return nil, err
	}

	out := classify(op, resp.StatusCode)
	if out == outcomeError {
		reason, serverID := decodeErrorBody(resp.Body)
		if serverID == "" {
			serverID = requestID
		}
		err = protocolError(op.name, resp.StatusCode, reason, serverID)
	}
	c.telemetry.finish(ctx, span, op, queue, resp.StatusCode, out, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &roundTrip{Response: resp, outcome: out, requestID: requestID}, nil
}

// malformed reports a success status whose body could not be decoded.
func (rt *roundTrip) malformed(op operation, err error) error {
	return &Error{
		Kind:       KindProtocol,
		Op:         op.name,
		StatusCode: rt.StatusCode,
		Reason:     "malformed response body",
		RequestID:  rt.requestID,
		Err:        err,
	}
}

func queuePath(queue string) string {
	return url.PathEscape(queue)
}

func jobPath(queue, jobID string) string {
	return url.PathEscape(queue) + "/job/" + url.PathEscape(jobID)
}

// multiQueuePath keeps the caller's order: it is the consume priority.
func multiQueuePath(queues []string) string {
	escaped := make([]string, len(queues))
	for i, q := range queues {
		escaped[i] = url.PathEscape(q)
	}
	return strings.Join(escaped, queueSeparator)
}

func intQuery(params map[string]int) url.Values {
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, strconv.Itoa(v))
	}
	return q
}

// Publish adds a job to queue and returns its id.
//
// ttl is the job lifetime in seconds (0 = never expires) and must exceed
// delay when both are set. tries is the delivery budget; tries = 1 means
// the job is consumed at most once. delay postpones readiness by that
// many seconds.
//
// Example:
//
//	id, err := client.Publish(ctx, "test-queue", []byte("bar"), 0, 10, 0)
func (c *Client) Publish(ctx context.Context, queue string, data []byte, ttl, tries, delay int) (string, error) {
	if err := validatePublishParams(queue, ttl, tries, delay); err != nil {
		return "", err
	}
	query := intQuery(map[string]int{"ttl": ttl, "tries": tries, "delay": delay})
	rt, err := c.do(ctx, opPublish, queue, queuePath(queue), query, encodePayload(data))
	if err != nil {
		return "", err
	}
	jobID, err := decodeJobID(rt.Body)
	if err != nil {
		return "", rt.malformed(opPublish, err)
	}
	return jobID, nil
}

// Consume reserves the next ready job in queue for ttr seconds, blocking
// up to timeout seconds (0 = until the request deadline) for one to
// become ready.
//
// When no job became ready in time Consume returns (nil, nil). A job
// that is not acked within ttr is redelivered while tries remain and is
// moved to the dead letter otherwise.
func (c *Client) Consume(ctx context.Context, queue string, ttr, timeout int) (*Job, error) {
	if err := validateQueue(opConsume.name, queue); err != nil {
		return nil, err
	}
	if err := validateConsumeParams(opConsume.name, ttr, timeout); err != nil {
		return nil, err
	}
	query := intQuery(map[string]int{"ttr": ttr, "timeout": timeout})
	job, err := c.consume(ctx, opConsume, queue, queuePath(queue), query)
	if job != nil {
		c.fill(job, queue)
	}
	return job, err
}

// ConsumeMultiQueues behaves like Consume over several queues with strict
// precedence: a job from an earlier queue is always returned before any
// job from a later one. It is the way to build priority queues.
//
// Example:
//
//	job, err := client.ConsumeMultiQueues(ctx, 30, 10, "urgent", "normal", "bulk")
func (c *Client) ConsumeMultiQueues(ctx context.Context, ttr, timeout int, queues ...string) (*Job, error) {
	if err := validateConsumeParams(opConsumeMultiQueues.name, ttr, timeout); err != nil {
		return nil, err
	}
	if err := validateQueues(opConsumeMultiQueues.name, queues); err != nil {
		return nil, err
	}
	query := intQuery(map[string]int{"ttr": ttr, "timeout": timeout})
	job, err := c.consume(ctx, opConsumeMultiQueues, strings.Join(queues, queueSeparator), multiQueuePath(queues), query)
	if job != nil {
		c.fill(job, multiQueueScope(queues))
	}
	return job, err
}

// multiQueueScope is the queue a reply must belong to when the request
// named only one.
func multiQueueScope(queues []string) string {
	if len(queues) == 1 {
		return queues[0]
	}
	return ""
}

// fill sets the scope fields a server may leave out of a job record.
// queue is empty when the request named more than one queue, so the
// caller cannot tell which one the job came from.
func (c *Client) fill(job *Job, queue string) {
	if job.Namespace == "" {
		job.Namespace = c.namespace
	}
	if job.Queue == "" {
		job.Queue = queue
	}
}

func (c *Client) consume(ctx context.Context, op operation, queue, path string, query url.Values) (*Job, error) {
	rt, err := c.do(ctx, op, queue, path, query, nil)
	if err != nil {
		return nil, err
	}
	if rt.outcome == outcomeEmpty {
		return nil, nil
	}
	job, err := decodeJob(rt.Body)
	if err != nil {
		return nil, rt.malformed(op, err)
	}
	return job, nil
}

// Ack deletes a reserved job, finishing its lifecycle. Acking a job that
// is unknown, expired or already acked returns an error.
func (c *Client) Ack(ctx context.Context, queue, jobID string) error {
	if err := validateQueue(opAck.name, queue); err != nil {
		return err
	}
	if err := validateJobID(opAck.name, jobID); err != nil {
		return err
	}
	_, err := c.do(ctx, opAck, queue, jobPath(queue, jobID), nil, nil)
	return err
}

// GetJob fetches a job by id without reserving it.
func (c *Client) GetJob(ctx context.Context, queue, jobID string) (*Job, error) {
	if err := validateQueue(opGetJob.name, queue); err != nil {
		return nil, err
	}
	if err := validateJobID(opGetJob.name, jobID); err != nil {
		return nil, err
	}
	rt, err := c.do(ctx, opGetJob, queue, jobPath(queue, jobID), nil, nil)
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(rt.Body)
	if err != nil {
		return nil, rt.malformed(opGetJob, err)
	}
	c.fill(job, queue)
	return job, nil
}
