// Package observability wires the process-wide zap loggers.
//
// Two loggers are maintained: CLILogger writes human-oriented output to
// stderr (stdout is reserved for JSONL progress records), ServerLogger
// writes structured JSON for the HTTP server. Both default to no-ops so
// packages can log before Init runs.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used by commands. Console encoding, stderr only.
	CLILogger = zap.NewNop()

	// ServerLogger is used by the HTTP server. JSON encoding.
	ServerLogger = zap.NewNop()
)

// Init builds both loggers at the given level. Profile selects the server
// encoder: "STRUCTURED" (JSON, the default) or "CONSOLE".
func Init(level, profile string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cliCfg := zap.NewDevelopmentConfig()
	cliCfg.Level = lvl
	cliCfg.OutputPaths = []string{"stderr"}
	cliCfg.ErrorOutputPaths = []string{"stderr"}
	cliCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cli, err := cliCfg.Build()
	if err != nil {
		return fmt.Errorf("build cli logger: %w", err)
	}

	srvCfg := zap.NewProductionConfig()
	srvCfg.Level = lvl
	if strings.EqualFold(profile, "CONSOLE") {
		srvCfg.Encoding = "console"
		srvCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	srv, err := srvCfg.Build()
	if err != nil {
		return fmt.Errorf("build server logger: %w", err)
	}

	CLILogger = cli
	ServerLogger = srv
	return nil
}

// Sync flushes both loggers. Errors are discarded; stderr sync failures on
// some platforms are expected and harmless.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}
