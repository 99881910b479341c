package lmstfy

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	payloadContentType = "application/octet-stream"
	maxReasonLength    = 256
)

// jobRecord is the wire form of a job. Data is standard base64 so that
// arbitrary bytes survive the JSON envelope.
type jobRecord struct {
	Namespace   string `json:"namespace,omitempty"`
	Queue       string `json:"queue,omitempty"`
	JobID       string `json:"job_id"`
	Data        string `json:"data"`
	TTL         int64  `json:"ttl"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	RemainTries int64  `json:"remain_tries"`
}

func jobToWire(j *Job) jobRecord {
	return jobRecord{
		Namespace:   j.Namespace,
		Queue:       j.Queue,
		JobID:       j.ID,
		Data:        base64.StdEncoding.EncodeToString(j.Data),
		TTL:         j.TTL,
		ElapsedMS:   j.ElapsedMS,
		RemainTries: j.RemainTries,
	}
}

func (r jobRecord) toJob() (*Job, error) {
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decode job data: %w", err)
	}
	return &Job{
		ID:          r.JobID,
		Namespace:   r.Namespace,
		Queue:       r.Queue,
		Data:        data,
		TTL:         r.TTL,
		ElapsedMS:   r.ElapsedMS,
		RemainTries: r.RemainTries,
	}, nil
}

// encodePayload returns the publish request body. The payload is sent
// as-is; only responses wrap job data in JSON.
func encodePayload(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}

func decodeJob(body []byte) (*Job, error) {
	var raw jobRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if raw.JobID == "" {
		return nil, fmt.Errorf("job record has no job_id")
	}
	return raw.toJob()
}

func decodeJobID(body []byte) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal publish response: %w", err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("publish response has no job_id")
	}
	return resp.JobID, nil
}

func decodeSize(body []byte) (int, error) {
	var resp struct {
		Size *int `json:"size"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("unmarshal size response: %w", err)
	}
	if resp.Size == nil {
		return 0, fmt.Errorf("size response has no size")
	}
	return *resp.Size, nil
}

func decodeCount(body []byte) (int, error) {
	var resp struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("unmarshal respawn response: %w", err)
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("respawn response has no count")
	}
	return *resp.Count, nil
}

// decodeErrorBody extracts the server message from an error response.
// Bodies that are not the expected JSON shape are returned as trimmed text.
func decodeErrorBody(body []byte) (reason, requestID string) {
	var resp struct {
		Error     string `json:"error"`
		Msg       string `json:"msg"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		reason = resp.Error
		if reason == "" {
			reason = resp.Msg
		}
		if reason != "" {
			return reason, resp.RequestID
		}
	}
	reason = strings.TrimSpace(string(body))
	if len(reason) > maxReasonLength {
		cut := maxReasonLength
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	if reason == "" {
		reason = "empty response body"
	}
	return reason, resp.RequestID
}
