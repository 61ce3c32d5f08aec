package commands

import (
	"encoding/json"
	"os"

	"jira-charts/internal/jql"

	"github.com/spf13/cobra"
)

var runFlags struct {
	filter string
	query  string
	from   string
	to     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one analysis in the foreground and print the final status",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := jql.Request{
			Query:    runFlags.query,
			DateFrom: runFlags.from,
			DateTo:   runFlags.to,
		}
		// A query wins over the saved filter
		if runFlags.filter != "" && req.Query == "" {
			req.UseFilter = true
			req.FilterID = jql.FilterID(runFlags.filter)
		}
		req = req.WithDefaultFilter(cfg.DefaultFilterID)

		status, err := pipeline.Run(cmd.Context(), req)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(status); encErr != nil {
			return encErr
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.filter, "filter", "", "saved filter id (defaults to DEFAULT_FILTER_ID)")
	runCmd.Flags().StringVar(&runFlags.query, "jql", "", "raw JQL query; overrides --filter")
	runCmd.Flags().StringVar(&runFlags.from, "from", "", "inclusive lower worklog date, YYYY-MM-DD")
	runCmd.Flags().StringVar(&runFlags.to, "to", "", "inclusive upper worklog date, YYYY-MM-DD")
}
