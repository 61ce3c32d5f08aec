package commands

import (
	"jira-charts/internal/config"
	"jira-charts/internal/jira"
	"jira-charts/internal/job"
	"jira-charts/internal/jql"
	"jira-charts/internal/logging"
	"jira-charts/internal/visuals"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	jiraClient jira.Client
	pipeline   *job.Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "jira-charts",
	Short: "jira-charts analyzes Jira worklogs and renders project charts",
	Long: `Fetches issues for a saved filter or JQL query, aggregates estimates and logged time per project,
flags process anomalies and writes timestamped snapshots with Mermaid charts.
Without a subcommand the HTTP API is served.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		// Initialize Jira Client
		jiraClient = jira.NewClient(cfg.Jira)

		pipeline = job.NewPipeline(
			job.NewTracker(),
			newFetcher(cfg),
			visuals.MermaidRenderer{CLMProject: cfg.CLMProject},
			cfg.ChartsDir,
			cfg.CLMProject,
		)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("charts", cfg.ChartsDir).
			Str("logs", cfg.LogDir).
			Msg("jira-charts starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// newFetcher returns the file-backed fetcher when a mock file is configured, the Jira fetcher otherwise.
func newFetcher(cfg *config.AppConfig) job.Fetcher {
	if cfg.MockFile != "" {
		log.Warn().Str("path", cfg.MockFile).Msg("Using mock issue file instead of Jira")
		return jira.FileFetcher{Path: cfg.MockFile}
	}
	return jira.NewFetcher(jiraClient, cfg.Jira.PageSize, cfg.Jira.Concurrency)
}

// defaultRequest is the saved-filter request used by scheduled runs.
func defaultRequest() jql.Request {
	return jql.Request{}.WithDefaultFilter(cfg.DefaultFilterID)
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, runCmd, runsCmd, mcpCmd, jqlCmd)
}
