package cli

import (
	"github.com/spf13/cobra"

	"github.com/mpdriver/mpdriver/cli/cmd"
	configcmd "github.com/mpdriver/mpdriver/cli/cmd/config"
	"github.com/mpdriver/mpdriver/cli/cmd/start"
	"github.com/mpdriver/mpdriver/pkg/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mpdriver",
		Short:         "Field-worker task service",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := root.PersistentFlags()
	flags.String(cmd.FlagLogLevel, "info", "Log level (debug, info, warn, error)")
	flags.Bool(cmd.FlagLogJSON, false, "Emit logs as JSON")
	flags.Bool(cmd.FlagLogSource, false, "Include source locations in logs")
	flags.String(cmd.FlagConfig, "", "Path to a YAML configuration file")
	flags.String(cmd.FlagEnvFile, ".env", "Path to a dotenv file")

	root.AddCommand(
		start.NewStartCommand(),
		configcmd.NewConfigCommand(),
	)
	return root
}
