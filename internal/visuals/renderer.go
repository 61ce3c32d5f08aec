package visuals

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"jira-charts/internal/analysis"

	"github.com/rs/zerolog/log"
)

// Chart names used as keys of the chart index.
const (
	ChartProjectDistribution = "project_distribution"
	ChartEstimateVsSpent     = "estimate_vs_spent"
	ChartNoTransitions       = "no_transitions"
	ChartOpenTasks           = "open_tasks"
	ChartClosedNoComments    = "closed_no_comments"
	ChartCLM                 = "clm_linked_time"
	SummaryKey               = "summary"
)

const defaultTopProjects = 10

// Summary is the machine-readable digest written next to the charts.
type Summary struct {
	TotalIssues         int      `json:"total_issues"`
	TotalProjects       int      `json:"total_projects"`
	TotalEstimateHours  float64  `json:"total_estimate_hours"`
	TotalTimeSpentHours float64  `json:"total_time_spent_hours"`
	NoTransitionIssues  int      `json:"no_transition_issues"`
	OpenTasksWithWork   int      `json:"open_tasks_with_work"`
	OpenTasksHours      float64  `json:"open_tasks_hours"`
	ClosedNoComments    int      `json:"closed_no_comments"`
	CLMIssues           int      `json:"clm_issues"`
	TopProjects         []string `json:"top_projects"`
}

// MermaidRenderer renders the charts of one run as Mermaid sources.
type MermaidRenderer struct {
	CLMProject  string
	TopProjects int
}

// Render writes every non-empty chart under dir/charts and the summary under dir/metrics.
// The returned index maps chart names to paths relative to dir.
func (r MermaidRenderer) Render(ctx context.Context, table analysis.Table, dir string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	top := r.TopProjects
	if top <= 0 {
		top = defaultTopProjects
	}

	agg, err := analysis.Aggregate(table)
	if err != nil {
		log.Warn().Err(err).Msg("Aggregation failed, rendering empty charts")
	}
	subsets, err := analysis.DeriveSubsets(table, r.CLMProject)
	if err != nil {
		log.Warn().Err(err).Msg("Subset derivation failed, rendering empty subset charts")
	}

	charts := []struct {
		name   string
		source string
	}{
		{ChartProjectDistribution, GenerateProjectDistribution(agg)},
		{ChartEstimateVsSpent, GenerateEstimateVsSpent(agg, top)},
		{ChartNoTransitions, GenerateNoTransitionsChart(agg)},
		{ChartOpenTasks, GenerateOpenTasksChart(agg, subsets)},
		{ChartClosedNoComments, GenerateClosedNoCommentsChart(agg, subsets)},
		{ChartCLM, GenerateCLMChart(subsets)},
	}

	chartDir := filepath.Join(dir, "charts")
	if err := os.MkdirAll(chartDir, 0755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}

	index := make(map[string]string, len(charts)+1)
	for _, c := range charts {
		if c.source == "" {
			log.Debug().Str("chart", c.name).Msg("Chart has no data, skipping")
			continue
		}
		rel := filepath.Join("charts", c.name+".mmd")
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(c.source+"\n"), 0644); err != nil {
			return nil, fmt.Errorf("write chart %s: %w", c.name, err)
		}
		index[c.name] = rel
	}

	summary := Summarize(table, agg, subsets, top)
	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "metrics"), 0755); err != nil {
		return nil, fmt.Errorf("create metrics directory: %w", err)
	}
	rel := filepath.Join("metrics", "summary.json")
	if err := os.WriteFile(filepath.Join(dir, rel), data, 0644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	index[SummaryKey] = rel

	log.Info().Int("charts", len(index)-1).Str("dir", chartDir).Msg("Charts rendered")
	return index, nil
}

// Summarize condenses the aggregate and subsets of a table into a Summary.
func Summarize(table analysis.Table, agg analysis.ProjectAggregate, s analysis.Subsets, top int) Summary {
	sum := Summary{
		TotalIssues:        table.Len(),
		TotalProjects:      len(agg.Projects),
		NoTransitionIssues: agg.NoTransitions.Total,
		OpenTasksWithWork:  s.OpenTasks.Count,
		OpenTasksHours:     s.OpenTasks.Total,
		ClosedNoComments:   s.ClosedNoComments.Total,
		CLMIssues:          s.CLM.Total,
		TopProjects:        analysis.TopProjects(agg, top),
	}
	for _, p := range agg.Projects {
		sum.TotalEstimateHours += agg.ProjectEstimates[p]
		sum.TotalTimeSpentHours += agg.ProjectTimeSpent[p]
	}
	sum.TotalEstimateHours = math.Round(sum.TotalEstimateHours*100) / 100
	sum.TotalTimeSpentHours = math.Round(sum.TotalTimeSpentHours*100) / 100
	return sum
}

// topByValue orders keys by value, descending, ties by key, and keeps the first n.
func topByValue(keys []string, values map[string]float64, n int) []string {
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(values[b], values[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
