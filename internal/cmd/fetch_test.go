package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/fetcher"
)

func resetFetchFlags() {
	fetchDates = nil
	fetchFrom = ""
	fetchTo = ""
	fetchQuiet = false
}

func TestBuildFetchJob(t *testing.T) {
	t.Run("defaults to today", func(t *testing.T) {
		resetFetchFlags()

		job, err := buildFetchJob()
		require.NoError(t, err)
		require.Len(t, job.Dates, 1)
		assert.Equal(t, datekey.Today(), job.Dates[0])
	})

	t.Run("explicit dates dedupe in order", func(t *testing.T) {
		resetFetchFlags()
		fetchDates = []string{"2024-03-05", "2024-03-01", "2024-03-05"}

		job, err := buildFetchJob()
		require.NoError(t, err)
		assert.Equal(t, []datekey.Key{"2024-03-05", "2024-03-01"}, job.Dates)
	})

	t.Run("range expands inclusive", func(t *testing.T) {
		resetFetchFlags()
		fetchFrom = "2024-03-01"
		fetchTo = "2024-03-03"

		job, err := buildFetchJob()
		require.NoError(t, err)
		assert.Equal(t, []datekey.Key{"2024-03-01", "2024-03-02", "2024-03-03"}, job.Dates)
	})

	t.Run("inverted range fails", func(t *testing.T) {
		resetFetchFlags()
		fetchFrom = "2024-03-03"
		fetchTo = "2024-03-01"

		_, err := buildFetchJob()
		require.Error(t, err)
		assert.True(t, errors.Is(err, fetcher.ErrInvalidRange))
	})

	t.Run("half a range fails", func(t *testing.T) {
		resetFetchFlags()
		fetchFrom = "2024-03-01"

		_, err := buildFetchJob()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--from and --to")
	})

	t.Run("dates and range are mutually exclusive", func(t *testing.T) {
		resetFetchFlags()
		fetchDates = []string{"2024-03-01"}
		fetchFrom = "2024-03-01"
		fetchTo = "2024-03-02"

		_, err := buildFetchJob()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be combined")
	})

	t.Run("malformed date fails", func(t *testing.T) {
		resetFetchFlags()
		fetchDates = []string{"05-03-2024"}

		_, err := buildFetchJob()
		require.Error(t, err)
	})
}
