package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bipard/healthfetch/internal/config"
	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the store holds",
	Long: `Show stored record counts, the most recent dates, and the last
fetch time.

Example:
  healthfetch status
  healthfetch status --json`,
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("query record count: %w", err)
	}
	last, err := store.LastFetchedAt(ctx)
	if err != nil {
		return fmt.Errorf("query last fetch time: %w", err)
	}
	recent, err := store.RecentDates(ctx, 14)
	if err != nil {
		return fmt.Errorf("query recent dates: %w", err)
	}

	if statusJSON {
		out := struct {
			DB            string        `json:"db"`
			RecordCount   int64         `json:"record_count"`
			LastFetchedAt string        `json:"last_fetched_at,omitempty"`
			RecentDates   []datekey.Key `json:"recent_dates"`
			EndpointCount int           `json:"endpoint_count"`
		}{
			DB:            config.GetConfig().Store.Path,
			RecordCount:   count,
			LastFetchedAt: last,
			RecentDates:   recent,
			EndpointCount: endpoint.Count,
		}
		if out.RecentDates == nil {
			out.RecentDates = []datekey.Key{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Database:       %s\n", config.GetConfig().Store.Path)
	fmt.Printf("Records:        %d\n", count)
	if last != "" {
		fmt.Printf("Last fetched:   %s\n", last)
	}
	fmt.Printf("Endpoints:      %d\n", endpoint.Count)
	if len(recent) > 0 {
		fmt.Println("Recent dates:")
		for _, d := range recent {
			fmt.Printf("  %s\n", d)
		}
	}
	return nil
}
