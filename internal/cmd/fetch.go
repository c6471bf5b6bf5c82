package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bipard/healthfetch/internal/observability"
	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/fetcher"
	"github.com/bipard/healthfetch/pkg/progress"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch metrics for one or more dates",
	Long: `Fetch metrics for today, specific dates, or an inclusive date range.

Progress events are written to stdout as JSONL, one event per line,
ending with a single batch_done summary.

Example:
  healthfetch fetch
  healthfetch fetch --date 2024-03-05
  healthfetch fetch --date 2024-03-05 --date 2024-03-07
  healthfetch fetch --from 2024-03-01 --to 2024-03-07
  healthfetch fetch --from 2024-03-01 --to 2024-03-07 --quiet`,
	RunE: runFetch,
}

var (
	fetchDates []string
	fetchFrom  string
	fetchTo    string
	fetchQuiet bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringArrayVarP(&fetchDates, "date", "d", nil, "Date to fetch (YYYY-MM-DD, repeatable)")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Range start (YYYY-MM-DD, inclusive)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "Range end (YYYY-MM-DD, inclusive)")
	fetchCmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "Only print the batch_done summary")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	job, err := buildFetchJob()
	if err != nil {
		return err
	}

	observability.CLILogger.Info("starting fetch job",
		zap.String("job_id", job.JobID),
		zap.Int("dates", len(job.Dates)))

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	f := buildFetcher(store)
	summary, err := emitJSONL(f.Run(ctx, job), os.Stdout, fetchQuiet)
	if err != nil {
		return err
	}

	observability.CLILogger.Info("fetch job finished",
		zap.String("job_id", job.JobID),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Bool("cancelled", summary.Cancelled),
		zap.String("duration", summary.DurationHuman))

	if summary.Error != "" {
		return fmt.Errorf("fetch job failed: %s", summary.Error)
	}
	if summary.Errored > 0 {
		return fmt.Errorf("%d of %d dates failed to store", summary.Errored, summary.Requested)
	}
	if summary.Cancelled {
		return context.Canceled
	}
	return nil
}

func buildFetchJob() (*fetcher.FetchJob, error) {
	haveRange := fetchFrom != "" || fetchTo != ""
	if haveRange && len(fetchDates) > 0 {
		return nil, fmt.Errorf("--date cannot be combined with --from/--to")
	}

	switch {
	case haveRange:
		if fetchFrom == "" || fetchTo == "" {
			return nil, fmt.Errorf("--from and --to must be given together")
		}
		from, err := datekey.Parse(fetchFrom)
		if err != nil {
			return nil, err
		}
		to, err := datekey.Parse(fetchTo)
		if err != nil {
			return nil, err
		}
		return fetcher.JobForRange(from, to)

	case len(fetchDates) > 0:
		keys := make([]datekey.Key, 0, len(fetchDates))
		for _, d := range fetchDates {
			k, err := datekey.Parse(d)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		return fetcher.NewJob(keys), nil

	default:
		return fetcher.JobForToday(), nil
	}
}

// emitJSONL writes each progress event as one JSON line and returns the
// decoded batch summary.
func emitJSONL(stream *progress.Stream, out *os.File, quiet bool) (progress.Summary, error) {
	enc := json.NewEncoder(out)
	var summary progress.Summary

	for event := range stream.Events() {
		if event.Type == progress.TypeBatchDone {
			if err := event.Decode(&summary); err != nil {
				return summary, fmt.Errorf("decode batch summary: %w", err)
			}
		}
		if quiet && event.Type != progress.TypeBatchDone {
			continue
		}
		if err := enc.Encode(event); err != nil {
			return summary, fmt.Errorf("write progress event: %w", err)
		}
	}
	return summary, nil
}
