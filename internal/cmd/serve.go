package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bipard/healthfetch/internal/config"
	"github.com/bipard/healthfetch/internal/observability"
	"github.com/bipard/healthfetch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

Routes:
  GET  /api/health       readiness probe
  GET  /api/status       stored record counts and recent dates
  GET  /api/endpoints    the upstream endpoint table
  GET  /api/fetch/today  fetch today's metrics (SSE progress)
  POST /api/fetch/range  fetch an inclusive date range (SSE progress)

Example:
  healthfetch serve
  healthfetch serve --port 9000`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override listen port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.GetConfig()

	serverCfg := cfg.Server
	if servePort != 0 {
		serverCfg.Port = servePort
	}

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	f := buildFetcher(store)
	srv := server.New(serverCfg, f, store, observability.ServerLogger, versionInfo.Version)

	observability.CLILogger.Info("starting server",
		zap.String("host", serverCfg.Host),
		zap.Int("port", serverCfg.Port),
		zap.String("db", cfg.Store.Path))

	return srv.Run(ctx)
}
