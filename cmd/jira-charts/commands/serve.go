package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jira-charts/internal/logging"
	"jira-charts/internal/scheduler"
	"jira-charts/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AnalysisCron != "" {
		sched, err := scheduler.New(cfg.AnalysisCron, cfg.AnalysisCronTZ, pipeline, defaultRequest())
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(pipeline, logging.Recent, server.Options{
		JiraURL:         cfg.Jira.BaseURL,
		DefaultFilterID: cfg.DefaultFilterID,
		Debug:           verbose,
	})
	log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API listening")
	return srv.Run(ctx, cfg.HTTPAddr)
}
