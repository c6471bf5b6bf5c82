package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// HEALTHFETCH_SERVER_PORT or HEALTHFETCH_FETCH_SECRET_KEY.
const EnvPrefix = "HEALTHFETCH"

var (
	mu      sync.RWMutex
	current *Config
)

// Load builds the configuration. Optional override maps are applied last
// and win over file and environment values. The loaded config becomes the
// process-wide current config returned by GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindAliases(v)

	v.SetConfigName("healthfetch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.healthfetch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, o := range overrides {
		if err := v.MergeConfigMap(o); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	mu.Lock()
	current = &cfg
	mu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded config, or nil before Load.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("fetch.base_url", "https://bipard.bhavyabiharhealth.in/api/bhavya")
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.call_ceiling", "30s")
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.backoff", "1s")
	v.SetDefault("fetch.rate_limit", 0)
	v.SetDefault("fetch.endpoint_concurrency", 8)
	v.SetDefault("fetch.date_concurrency", 1)

	v.SetDefault("store.path", "healthfetch.db")
}

// bindAliases maps the short env names operators actually set to their
// nested keys.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("server.port", "HEALTHFETCH_PORT", "HEALTHFETCH_SERVER_PORT")
	_ = v.BindEnv("logging.level", "HEALTHFETCH_LOG_LEVEL", "HEALTHFETCH_LOGGING_LEVEL")
	_ = v.BindEnv("fetch.base_url", "HEALTHFETCH_BASE_URL", "HEALTHFETCH_FETCH_BASE_URL")
	_ = v.BindEnv("fetch.secret_key", "HEALTHFETCH_SECRET_KEY", "HEALTHFETCH_FETCH_SECRET_KEY")
	_ = v.BindEnv("fetch.client_key", "HEALTHFETCH_CLIENT_KEY", "HEALTHFETCH_FETCH_CLIENT_KEY")
	_ = v.BindEnv("store.path", "HEALTHFETCH_DB_PATH", "HEALTHFETCH_STORE_PATH")
}
