// Package progress defines the typed event stream a fetch job emits.
//
// Events are structured as typed envelopes carrying a type-specific payload,
// so each event is a self-contained JSON object that can be forwarded as an
// SSE frame or a JSONL line without interpretation.
package progress

import (
	"encoding/json"
	"time"

	"github.com/bipard/healthfetch/pkg/datekey"
)

// Event type constants define the envelope types.
// These follow the pattern: healthfetch.<type>.v<version>
const (
	// TypeStarted marks the beginning of one date's processing.
	TypeStarted = "healthfetch.started.v1"

	// TypeEndpointDone reports one resolved endpoint call (success or failure).
	TypeEndpointDone = "healthfetch.endpoint_done.v1"

	// TypeDateDone is the terminal event for a processed date.
	TypeDateDone = "healthfetch.date_done.v1"

	// TypeDateSkipped is the terminal event for an already-stored date.
	TypeDateSkipped = "healthfetch.date_skipped.v1"

	// TypeBatchDone is the single final event of a job.
	TypeBatchDone = "healthfetch.batch_done.v1"
)

// Event is the envelope for all progress output.
type Event struct {
	// Type identifies the event type (e.g., "healthfetch.date_done.v1").
	Type string `json:"type"`

	// TS is the emission timestamp (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID of the fetch job.
	JobID string `json:"job_id"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// Started is the payload emitted when a date's processing begins.
type Started struct {
	Date datekey.Key `json:"date"`

	// DateIndex is the 1-based position in the job, TotalDates the job size.
	DateIndex  int `json:"date_index"`
	TotalDates int `json:"total_dates"`
}

// EndpointDone is the payload for one resolved endpoint call. Emission order
// within a date reflects completion order, not table order.
type EndpointDone struct {
	Date     datekey.Key `json:"date"`
	Endpoint string      `json:"endpoint"`
	OK       bool        `json:"ok"`
	Error    string      `json:"error,omitempty"`
}

// DateDone is the terminal payload for a date that was attempted.
type DateDone struct {
	Date datekey.Key `json:"date"`

	// Succeeded and Failed count endpoint outcomes for the date.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// Stored is false when persistence failed; Error then carries the cause.
	Stored bool   `json:"stored"`
	Error  string `json:"error,omitempty"`
}

// DateSkipped is the terminal payload for a date that was never attempted
// because a row for it already exists.
type DateSkipped struct {
	Date   datekey.Key `json:"date"`
	Reason string      `json:"reason"`
}

// Summary aggregates a completed (or cancelled) batch.
type Summary struct {
	// Requested is the job size after de-duplication.
	Requested int `json:"requested"`

	// Processed counts dates stored successfully, Skipped counts dates
	// already present, Errored counts dates whose persistence failed.
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`

	// EndpointFailures maps each attempted date to its failed-endpoint count.
	// Dates with zero failures are omitted.
	EndpointFailures map[string]int `json:"endpoint_failures,omitempty"`

	// Cancelled is true when the job stopped before exhausting its dates.
	Cancelled bool `json:"cancelled"`

	// Duration is the wall time of the batch.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Error carries a batch-level failure (e.g. the existence query failed
	// before any date was attempted).
	Error string `json:"error,omitempty"`
}

// Decode unmarshals the event payload into out.
func (e Event) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

// IsTerminal reports whether the event is a per-date terminal event.
func (e Event) IsTerminal() bool {
	return e.Type == TypeDateDone || e.Type == TypeDateSkipped
}
