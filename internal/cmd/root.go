// Package cmd implements the healthfetch CLI.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bipard/healthfetch/internal/config"
	"github.com/bipard/healthfetch/internal/observability"
	"github.com/bipard/healthfetch/pkg/fetchclient"
	"github.com/bipard/healthfetch/pkg/fetcher"
	"github.com/bipard/healthfetch/pkg/healthstore"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
}

var rootCmd = &cobra.Command{
	Use:   "healthfetch",
	Short: "Daily Bihar health metrics collector",
	Long: `healthfetch collects daily state health metrics from the Bhavya API.

For each requested date it queries all upstream endpoints, merges the
responses into one wide row, and stores the row keyed by date. Progress
is reported as a typed event stream: JSONL on the CLI, SSE over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagLogLevel string
	flagDBPath   string
	flagBaseURL  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Override SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Override upstream API base URL")

	rootCmd.PersistentPreRunE = initApp
}

// initApp loads configuration (flags win over env and file) and builds the
// loggers before any subcommand runs.
func initApp(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if flagLogLevel != "" {
		overrides["logging"] = map[string]any{"level": flagLogLevel}
	}
	if flagDBPath != "" {
		overrides["store"] = map[string]any{"path": flagDBPath}
	}
	if flagBaseURL != "" {
		overrides["fetch"] = map[string]any{"base_url": flagBaseURL}
	}

	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return err
	}
	return observability.Init(cfg.Logging.Level, cfg.Logging.Profile)
}

// Execute runs the CLI with signal-driven cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	return rootCmd.ExecuteContext(ctx)
}

// openStore opens the configured SQLite store, creating and migrating it
// as needed.
func openStore(ctx context.Context) (*healthstore.Store, error) {
	cfg := config.GetConfig()
	return healthstore.Open(ctx, healthstore.Config{Path: cfg.Store.Path})
}

// buildFetcher wires the upstream client and the orchestrator from config.
func buildFetcher(store *healthstore.Store) *fetcher.Fetcher {
	cfg := config.GetConfig()

	client := fetchclient.New(fetchclient.Config{
		BaseURL: cfg.Fetch.BaseURL,
		Credentials: fetchclient.Credentials{
			SecretKey: cfg.Fetch.SecretKey,
			ClientKey: cfg.Fetch.ClientKey,
		},
		Timeout:            cfg.Fetch.Timeout,
		CallCeiling:        cfg.Fetch.CallCeiling,
		Retries:            cfg.Fetch.Retries,
		Backoff:            cfg.Fetch.Backoff,
		RateLimit:          cfg.Fetch.RateLimit,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	})

	return fetcher.New(client, store, fetcher.Config{
		EndpointConcurrency: cfg.Fetch.EndpointConcurrency,
		DateConcurrency:     cfg.Fetch.DateConcurrency,
	})
}
