package start

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mpdriver/mpdriver/cli/cmd"
	"github.com/mpdriver/mpdriver/engine/infra/server"
	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

const productionEnvironment = "production"

// NewStartCommand creates the start command for the HTTP server.
func NewStartCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "start",
		Aliases: []string{"server"},
		Short:   "Start the mpdriver task server",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, runStart, args)
		},
	}
	command.Flags().String("host", "", "Host to bind")
	command.Flags().Int("port", 0, "Port to listen on")
	return command
}

func runStart(ctx context.Context, _ *cobra.Command, _ []string) error {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	if cfg.Runtime.Environment == productionEnvironment {
		gin.SetMode(gin.ReleaseMode)
	}
	logSecurityWarnings(ctx, cfg)
	srv, err := server.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run()
}

func logSecurityWarnings(ctx context.Context, cfg *config.Config) {
	log := logger.FromContext(ctx)
	if cfg.Server.Auth.Secret.Value() == "" {
		log.Warn("No token signing secret configured; set SERVER_AUTH_SECRET")
	}
	if cfg.Runtime.Environment != productionEnvironment {
		return
	}
	if cfg.Database.SSLMode == "disable" && cfg.Database.ConnString == "" {
		log.Warn("Database SSL is disabled in production")
	}
}
