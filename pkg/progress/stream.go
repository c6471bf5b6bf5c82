package progress

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultBuffer is the stream's default channel capacity. It absorbs short
// consumer stalls; past it the producer blocks, so events are never dropped.
const DefaultBuffer = 64

// Stream is the single-producer, single-consumer conduit between a running
// fetch job and its transport (SSE handler, CLI writer, test collector).
//
// The producer calls Emit* and finally Close; the consumer ranges over
// Events until the channel is closed.
type Stream struct {
	jobID string
	ch    chan Event
}

// NewStream creates a stream for the given job. buffer <= 0 selects
// DefaultBuffer.
func NewStream(jobID string, buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Stream{jobID: jobID, ch: make(chan Event, buffer)}
}

// JobID returns the job correlation ID stamped on every event.
func (s *Stream) JobID() string { return s.jobID }

// Events returns the receive side of the stream. The channel is closed
// after the batch_done event.
func (s *Stream) Events() <-chan Event { return s.ch }

// Close ends the stream. Must be called exactly once, by the producer,
// after the final event.
func (s *Stream) Close() { close(s.ch) }

// NewEvent builds an envelope for a payload without emitting it. The
// orchestrator uses this to buffer whole per-date event blocks when dates
// run concurrently.
func NewEvent(jobID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		Type:  eventType,
		TS:    time.Now().UTC(),
		JobID: jobID,
		Data:  data,
	}, nil
}

func (s *Stream) emit(eventType string, payload any) error {
	e, err := NewEvent(s.jobID, eventType, payload)
	if err != nil {
		return err
	}
	s.ch <- e
	return nil
}

// EmitStarted emits a started event.
func (s *Stream) EmitStarted(p Started) error {
	return s.emit(TypeStarted, p)
}

// EmitEndpointDone emits an endpoint_done event.
func (s *Stream) EmitEndpointDone(p EndpointDone) error {
	return s.emit(TypeEndpointDone, p)
}

// EmitDateDone emits a date_done event.
func (s *Stream) EmitDateDone(p DateDone) error {
	return s.emit(TypeDateDone, p)
}

// EmitDateSkipped emits a date_skipped event.
func (s *Stream) EmitDateSkipped(p DateSkipped) error {
	return s.emit(TypeDateSkipped, p)
}

// EmitBatchDone emits the final batch_done event.
func (s *Stream) EmitBatchDone(p Summary) error {
	return s.emit(TypeBatchDone, p)
}

// Forward re-emits an already-built event, preserving its original
// timestamp. Used by the orchestrator's re-sequencing buffer.
func (s *Stream) Forward(e Event) {
	s.ch <- e
}
