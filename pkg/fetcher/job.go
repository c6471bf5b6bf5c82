package fetcher

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bipard/healthfetch/pkg/datekey"
)

// ErrInvalidRange is returned when a range request's start date is after its
// end date. No job is created and no events are produced.
var ErrInvalidRange = errors.New("invalid date range")

// FetchJob is one orchestration run: an ordered, de-duplicated sequence of
// dates plus a correlation ID stamped on every progress event.
type FetchJob struct {
	JobID string
	Dates []datekey.Key
}

// NewJob creates a job over dates, dropping repeats while preserving the
// first occurrence's position. An empty date list is a valid no-op job.
func NewJob(dates []datekey.Key) *FetchJob {
	seen := make(map[datekey.Key]bool, len(dates))
	deduped := make([]datekey.Key, 0, len(dates))
	for _, d := range dates {
		if seen[d] {
			continue
		}
		seen[d] = true
		deduped = append(deduped, d)
	}
	return &FetchJob{JobID: uuid.New().String(), Dates: deduped}
}

// JobForDate creates a single-date job.
func JobForDate(date datekey.Key) *FetchJob {
	return NewJob([]datekey.Key{date})
}

// JobForToday creates a job for the current local date.
func JobForToday() *FetchJob {
	return JobForDate(datekey.Today())
}

// JobForRange creates a job for every date in [from, to] inclusive.
// Fails fast with ErrInvalidRange when from is after to.
func JobForRange(from, to datekey.Key) (*FetchJob, error) {
	if from > to {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	dates, err := datekey.Range(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return NewJob(dates), nil
}
