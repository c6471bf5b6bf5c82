package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bipard/healthfetch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML, after defaults, config
file, environment, and flag overrides have been applied. Credential
values are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

const redacted = "<redacted>"

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := config.GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	shown := *cfg
	if shown.Fetch.SecretKey != "" {
		shown.Fetch.SecretKey = redacted
	}
	if shown.Fetch.ClientKey != "" {
		shown.Fetch.ClientKey = redacted
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(effectiveConfig(shown))
}

// effectiveConfig shapes the config for display with stable key names.
func effectiveConfig(cfg config.Config) map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":             cfg.Server.Host,
			"port":             cfg.Server.Port,
			"read_timeout":     cfg.Server.ReadTimeout.String(),
			"write_timeout":    cfg.Server.WriteTimeout.String(),
			"idle_timeout":     cfg.Server.IdleTimeout.String(),
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"logging": map[string]any{
			"level":   cfg.Logging.Level,
			"profile": cfg.Logging.Profile,
		},
		"fetch": map[string]any{
			"base_url":             cfg.Fetch.BaseURL,
			"secret_key":           cfg.Fetch.SecretKey,
			"client_key":           cfg.Fetch.ClientKey,
			"timeout":              cfg.Fetch.Timeout.String(),
			"call_ceiling":         cfg.Fetch.CallCeiling.String(),
			"retries":              cfg.Fetch.Retries,
			"backoff":              cfg.Fetch.Backoff.String(),
			"rate_limit":           cfg.Fetch.RateLimit,
			"endpoint_concurrency": cfg.Fetch.EndpointConcurrency,
			"date_concurrency":     cfg.Fetch.DateConcurrency,
		},
		"store": map[string]any{
			"path": cfg.Store.Path,
		},
	}
}
