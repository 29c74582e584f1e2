package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpdriver/mpdriver/cli/cmd"
	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

const redacted = "[REDACTED]"

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Configuration management and diagnostics",
	}
	command.AddCommand(NewConfigShowCommand(), NewConfigValidateCommand())
	return command
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Long: `Display the effective configuration with secrets redacted.
Supports JSON, YAML, and table output formats.`,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, runShow, args)
		},
	}
	command.Flags().StringP("format", "f", "table", "Output format (json, yaml, table)")
	command.Flags().Bool("sources", false, "Show where each value came from")
	return command
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, runValidate, args)
		},
	}
}

func runShow(ctx context.Context, cobraCmd *cobra.Command, _ []string) error {
	logger.FromContext(ctx).Debug("executing config show command")
	format, err := cobraCmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	manager := config.ManagerFromContext(ctx)
	flat := flattenConfig(manager.Get())
	var sources map[string]config.SourceType
	if showSources {
		sources = make(map[string]config.SourceType, len(flat))
		for key := range flat {
			sources[key] = manager.Service.GetSource(key)
		}
	}
	return formatConfigOutput(cobraCmd.OutOrStdout(), flat, sources, format)
}

func runValidate(ctx context.Context, cobraCmd *cobra.Command, _ []string) error {
	manager := config.ManagerFromContext(ctx)
	if err := manager.Service.Validate(manager.Get()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cobraCmd.OutOrStdout(), "Configuration is valid")
	return nil
}

// formatConfigOutput writes the flattened configuration in the requested format
func formatConfigOutput(w io.Writer, flat map[string]string, sources map[string]config.SourceType, format string) error {
	switch format {
	case "json":
		out := map[string]any{"config": flat}
		if sources != nil {
			out["sources"] = sources
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "yaml":
		out := map[string]any{"config": flat}
		if sources != nil {
			out["sources"] = sources
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		return encoder.Encode(out)
	case "table":
		return outputTable(w, flat, sources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func outputTable(out io.Writer, flat map[string]string, sources map[string]config.SourceType) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if sources != nil {
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE\tENV")
	} else {
		fmt.Fprintln(w, "KEY\tVALUE")
	}
	for _, k := range keys {
		if sources != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k, flat[k], sources[k], config.EnvVarFor(k))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", k, flat[k])
	}
	return w.Flush()
}

// flattenConfig renders every value as a string keyed by its config path.
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenServerConfig(cfg, result)
	flattenDatabaseConfig(cfg, result)
	flattenRedisConfig(cfg, result)
	flattenTasksConfig(cfg, result)
	flattenRuntimeConfig(cfg, result)
	return result
}

func flattenServerConfig(cfg *config.Config, result map[string]string) {
	result["server.host"] = cfg.Server.Host
	result["server.port"] = strconv.Itoa(cfg.Server.Port)
	result["server.timeout"] = cfg.Server.Timeout.String()
	result["server.auth.secret"] = redactSensitive(cfg.Server.Auth.Secret)
}

func flattenDatabaseConfig(cfg *config.Config, result map[string]string) {
	db := &cfg.Database
	if db.ConnString != "" {
		result["database.conn_string"] = redactURL(db.ConnString)
	}
	result["database.host"] = db.Host
	result["database.port"] = db.Port
	result["database.user"] = db.User
	result["database.password"] = redactSensitive(db.Password)
	result["database.name"] = db.DBName
	result["database.ssl_mode"] = db.SSLMode
	result["database.max_open_conns"] = strconv.Itoa(db.MaxOpenConns)
	result["database.max_idle_conns"] = strconv.Itoa(db.MaxIdleConns)
	result["database.connect_retries"] = strconv.FormatUint(db.ConnectRetries, 10)
	result["database.connect_retry_delay"] = db.ConnectRetryDelay.String()
}

func flattenRedisConfig(cfg *config.Config, result map[string]string) {
	result["redis.addr"] = cfg.Redis.Addr
	result["redis.password"] = redactSensitive(cfg.Redis.Password)
	result["redis.db"] = strconv.Itoa(cfg.Redis.DB)
	result["redis.prefix"] = cfg.Redis.Prefix
	result["redis.ttl"] = cfg.Redis.TTL.String()
	result["reference.cache_size"] = strconv.Itoa(cfg.Reference.CacheSize)
}

func flattenTasksConfig(cfg *config.Config, result map[string]string) {
	result["tasks.station_param_code"] = cfg.Tasks.StationParamCode
	result["tasks.route_param_code"] = cfg.Tasks.RouteParamCode
	result["tasks.status_event_kind"] = cfg.Tasks.StatusEventKind
	result["tasks.status_param_code"] = cfg.Tasks.StatusParamCode
	result["notes.status_event_kind"] = strconv.FormatInt(cfg.Notes.StatusEventKind, 10)
	result["notes.created_event_kind"] = strconv.FormatInt(cfg.Notes.CreatedEventKind, 10)
	result["monitoring.enabled"] = strconv.FormatBool(cfg.Monitoring.Enabled)
	result["monitoring.path"] = cfg.Monitoring.Path
}

func flattenRuntimeConfig(cfg *config.Config, result map[string]string) {
	result["runtime.environment"] = cfg.Runtime.Environment
	result["runtime.log_level"] = cfg.Runtime.LogLevel
	result["runtime.log_json"] = strconv.FormatBool(cfg.Runtime.LogJSON)
}

func redactSensitive(s config.SensitiveString) string {
	if s.Value() == "" {
		return ""
	}
	return redacted
}

// redactURL hides the password embedded in a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
