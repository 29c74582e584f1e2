package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

// HandlerFunc runs a command with a context carrying the logger and the
// configuration manager.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

// Persistent flag names shared by every command.
const (
	FlagLogLevel  = "log-level"
	FlagLogJSON   = "log-json"
	FlagLogSource = "log-source"
	FlagConfig    = "config"
	FlagEnvFile   = "env-file"
)

// flagPaths maps command flags onto configuration paths.
var flagPaths = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	FlagLogJSON: "runtime.log_json",
}

// ExecuteCommand loads configuration, prepares the logger and runs handler.
func ExecuteCommand(cobraCmd *cobra.Command, handler HandlerFunc, args []string) error {
	ctx, cleanup, err := Setup(cobraCmd)
	if err != nil {
		return err
	}
	defer cleanup()
	return handler(ctx, cobraCmd, args)
}

// Setup builds the command context: env file, config sources in precedence
// order, then the logger.
func Setup(cobraCmd *cobra.Command) (context.Context, func(), error) {
	ctx := cobraCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	envFile, _ := cobraCmd.Flags().GetString(FlagEnvFile)
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	sources := []config.Source{config.NewDefaultProvider()}
	if path, _ := cobraCmd.Flags().GetString(FlagConfig); path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	sources = append(sources, config.NewEnvProvider(), config.NewCLIProvider(changedFlags(cobraCmd)))

	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	level, logJSON, logSource, err := logger.GetLoggerConfig(cobraCmd)
	if err != nil {
		return nil, nil, err
	}
	if !cobraCmd.Flags().Changed(FlagLogLevel) {
		level = cfg.Runtime.LogLevel
	}
	log := logger.SetupLogger(level, logJSON || cfg.Runtime.LogJSON, logSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithManager(ctx, manager)
	cleanup := func() {
		if err := manager.Close(ctx); err != nil {
			log.Warn("Failed to close configuration sources", "error", err)
		}
	}
	return ctx, cleanup, nil
}

func changedFlags(cobraCmd *cobra.Command) map[string]any {
	out := map[string]any{}
	for flag, path := range flagPaths {
		f := cobraCmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "int":
			v, _ := cobraCmd.Flags().GetInt(flag)
			out[path] = v
		case "bool":
			v, _ := cobraCmd.Flags().GetBool(flag)
			out[path] = v
		default:
			out[path] = f.Value.String()
		}
	}
	return out
}
