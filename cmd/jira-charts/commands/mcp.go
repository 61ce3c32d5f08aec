package commands

import (
	"context"
	"os"
	"os/signal"

	"jira-charts/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log.Info().Msg("MCP Server starting Stdio loop")
		server := mcp.NewServer(pipeline, mcp.Options{
			Version:         Version,
			JiraURL:         cfg.Jira.BaseURL,
			DefaultFilterID: cfg.DefaultFilterID,
		})
		return server.Run(ctx)
	},
}
