// Package config loads the application configuration from defaults, an
// optional YAML config file, environment variables, and runtime overrides,
// in increasing order of precedence.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the zap loggers.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// FetchConfig configures the upstream client and the orchestrator.
type FetchConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	SecretKey string `mapstructure:"secret_key"`
	ClientKey string `mapstructure:"client_key"`

	Timeout     time.Duration `mapstructure:"timeout"`
	CallCeiling time.Duration `mapstructure:"call_ceiling"`
	Retries     int           `mapstructure:"retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	RateLimit   float64       `mapstructure:"rate_limit"`

	EndpointConcurrency int `mapstructure:"endpoint_concurrency"`
	DateConcurrency     int `mapstructure:"date_concurrency"`

	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}
