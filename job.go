package lmstfy

import (
	"encoding/json"
	"time"
)

// Job is a unit of work as observed by a client. Data always holds the
// exact bytes that were published.
type Job struct {
	ID        string
	Namespace string
	Queue     string
	Data      []byte

	// TTL is the number of seconds left before the job expires.
	// Zero means the job never expires.
	TTL int64

	// ElapsedMS is the time since the job was published.
	ElapsedMS int64

	// RemainTries is the redelivery budget left after this reservation.
	// When it reaches zero an unacked job moves to the dead letter.
	RemainTries int64
}

// Elapsed returns ElapsedMS as a time.Duration.
func (j *Job) Elapsed() time.Duration {
	return time.Duration(j.ElapsedMS) * time.Millisecond
}

// MarshalJSON encodes the job in its wire representation, with Data
// base64-encoded.
func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobToWire(&j))
}

// UnmarshalJSON decodes a wire job record, reversing the Data encoding.
func (j *Job) UnmarshalJSON(data []byte) error {
	var raw jobRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := raw.toJob()
	if err != nil {
		return err
	}
	*j = *decoded
	return nil
}
