package commands

import (
	"fmt"

	"jira-charts/internal/jql"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var jqlFlags struct {
	base string
	from string
	to   string
	open bool
}

var jqlCmd = &cobra.Command{
	Use:   "jql",
	Short: "Build Jira issue navigator links",
}

var jqlProjectCmd = &cobra.Command{
	Use:   "project <KEY>",
	Short: "Link to one project's issues with work logged in a date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := jqlFlags.base
		if base == "" {
			base = jql.String(jql.Request{UseFilter: true, FilterID: jql.FilterID(cfg.DefaultFilterID)}.Base())
		}
		q := jql.String(jql.ProjectQuery(base, args[0], jqlFlags.from, jqlFlags.to))
		url := jql.BrowseURL(cfg.Jira.BaseURL, q)

		fmt.Fprintln(cmd.OutOrStdout(), q)
		fmt.Fprintln(cmd.OutOrStdout(), url)

		if jqlFlags.open {
			if err := browser.OpenURL(url); err != nil {
				log.Warn().Err(err).Msg("Failed to open browser")
			}
		}
		return nil
	},
}

var jqlFilterCmd = &cobra.Command{
	Use:   "filter [ID]",
	Short: "Show a saved filter's name and query (defaults to DEFAULT_FILTER_ID)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := cfg.DefaultFilterID
		if len(args) == 1 {
			id = args[0]
		}
		filter, err := jiraClient.GetFilter(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get filter %s: %w", id, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%v\n%v\n", filter["name"], filter["jql"])
		fmt.Fprintln(cmd.OutOrStdout(), jql.BrowseURL(cfg.Jira.BaseURL, "filter="+id))
		return nil
	},
}

func init() {
	jqlProjectCmd.Flags().StringVar(&jqlFlags.base, "base", "", "query to narrow (defaults to the default filter)")
	jqlProjectCmd.Flags().StringVar(&jqlFlags.from, "from", "", "inclusive lower worklog date, YYYY-MM-DD")
	jqlProjectCmd.Flags().StringVar(&jqlFlags.to, "to", "", "inclusive upper worklog date, YYYY-MM-DD")
	jqlProjectCmd.Flags().BoolVar(&jqlFlags.open, "open", false, "open the link in the default browser")
	jqlCmd.AddCommand(jqlProjectCmd, jqlFilterCmd)
}
