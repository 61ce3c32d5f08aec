package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"jira-charts/internal/snapshot"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List analysis snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := snapshot.List(cfg.ChartsDir)
		if err != nil {
			return err
		}
		if runsLimit > 0 && len(runs) > runsLimit {
			runs = runs[:runsLimit]
		}
		return printRuns(cmd.OutOrStdout(), runs, isatty.IsTerminal(os.Stdout.Fd()))
	},
}

// printRuns renders snapshots as a table. Incomplete runs have no index.json.
func printRuns(w io.Writer, runs []snapshot.Run, useColors bool) error {
	table := tablewriter.NewWriter(w)

	// 1. Headers
	table.Header([]string{"Folder", "State", "Issues"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 2. Rows
	green, yellow := fmt.Sprint, fmt.Sprint
	if useColors {
		green = color.New(color.FgGreen).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
	}
	var data [][]string
	for _, r := range runs {
		state, issues := yellow("incomplete"), "-"
		if r.Complete {
			state, issues = green("complete"), strconv.Itoa(r.TotalIssues)
		}
		data = append(data, []string{r.Folder, state, issues})
	}

	// 3. Render
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d snapshots\n", len(runs))
	return err
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "maximum number of snapshots; 0 lists all")
}
