package fetcher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bipard/healthfetch/pkg/datekey"
)

func TestNewJob(t *testing.T) {
	t.Run("assigns a job id", func(t *testing.T) {
		job := NewJob([]datekey.Key{"2024-03-01"})
		assert.NotEmpty(t, job.JobID)
		assert.Equal(t, []datekey.Key{"2024-03-01"}, job.Dates)
	})

	t.Run("dedupes preserving first occurrence order", func(t *testing.T) {
		job := NewJob([]datekey.Key{"2024-03-02", "2024-03-01", "2024-03-02", "2024-03-01"})
		assert.Equal(t, []datekey.Key{"2024-03-02", "2024-03-01"}, job.Dates)
	})

	t.Run("empty list is a valid no-op job", func(t *testing.T) {
		job := NewJob(nil)
		assert.NotEmpty(t, job.JobID)
		assert.Empty(t, job.Dates)
	})

	t.Run("job ids are unique", func(t *testing.T) {
		a := NewJob(nil)
		b := NewJob(nil)
		assert.NotEqual(t, a.JobID, b.JobID)
	})
}

func TestJobForRange(t *testing.T) {
	t.Run("expands inclusive range", func(t *testing.T) {
		job, err := JobForRange("2024-02-27", "2024-03-02")
		require.NoError(t, err)
		assert.Equal(t, []datekey.Key{
			"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02",
		}, job.Dates)
	})

	t.Run("single day range", func(t *testing.T) {
		job, err := JobForRange("2024-03-01", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, []datekey.Key{"2024-03-01"}, job.Dates)
	})

	t.Run("inverted range fails before any work", func(t *testing.T) {
		job, err := JobForRange("2024-03-02", "2024-03-01")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRange))
		assert.Nil(t, job)
	})
}

func TestJobForToday(t *testing.T) {
	job := JobForToday()
	require.Len(t, job.Dates, 1)
	assert.Equal(t, datekey.FromTime(time.Now()), job.Dates[0])
}
