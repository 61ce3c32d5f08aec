package visuals

import (
	"fmt"
	"math"
	"strings"

	"jira-charts/internal/analysis"
)

// Fence wraps a bare Mermaid chart in a Markdown code block.
func Fence(chart string) string {
	if chart == "" {
		return ""
	}
	return "```mermaid\n" + chart + "\n```"
}

func label(s string) string {
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(s, "\"", "'"))
}

func axisMax(maxVal float64) int {
	return int(math.Ceil(maxVal*1.1)) + 1
}

// GenerateProjectDistribution creates a Mermaid pie chart of issue counts per project.
func GenerateProjectDistribution(agg analysis.ProjectAggregate) string {
	if len(agg.ProjectCounts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("pie title Issues per Project\n")
	for _, p := range agg.Projects {
		if n := agg.ProjectCounts[p]; n > 0 {
			sb.WriteString(fmt.Sprintf("    %s : %d\n", label(p), n))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// GenerateEstimateVsSpent creates a grouped bar chart of estimated and spent hours for the top projects.
// The first bar series is the estimate, the second the time spent.
func GenerateEstimateVsSpent(agg analysis.ProjectAggregate, top int) string {
	projects := analysis.TopProjects(agg, top)
	if len(projects) == 0 {
		return ""
	}

	var labels, estimates, spent []string
	maxVal := 0.0
	for _, p := range projects {
		e, s := agg.ProjectEstimates[p], agg.ProjectTimeSpent[p]
		labels = append(labels, label(p))
		estimates = append(estimates, fmt.Sprintf("%.1f", e))
		spent = append(spent, fmt.Sprintf("%.1f", s))
		maxVal = math.Max(maxVal, math.Max(e, s))
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Estimate vs Time Spent (Top %d Projects)\"\n", len(projects)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Hours\" 0 --> %d\n", axisMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(estimates, ", ")))
	sb.WriteString(fmt.Sprintf("    bar [%s]", strings.Join(spent, ", ")))
	return sb.String()
}

// countChart renders a per-project count breakdown in project order.
func countChart(title, yLabel string, projects []string, b analysis.CountBreakdown) string {
	if b.Total == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0
	for _, p := range projects {
		n, ok := b.ByProject[p]
		if !ok || n == 0 {
			continue
		}
		labels = append(labels, label(p))
		values = append(values, fmt.Sprintf("%d", n))
		maxVal = max(maxVal, n)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, axisMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]", strings.Join(values, ", ")))
	return sb.String()
}

// GenerateNoTransitionsChart shows issues that had work logged but never moved status.
func GenerateNoTransitionsChart(agg analysis.ProjectAggregate) string {
	return countChart("Worked Issues Without Status Transitions", "Issues", agg.Projects, agg.NoTransitions)
}

// GenerateClosedNoCommentsChart shows closed issues nobody commented on.
func GenerateClosedNoCommentsChart(agg analysis.ProjectAggregate, s analysis.Subsets) string {
	return countChart("Closed Issues Without Comments", "Issues", agg.Projects, s.ClosedNoComments)
}

// GenerateOpenTasksChart shows hours already logged on issues that are still open.
func GenerateOpenTasksChart(agg analysis.ProjectAggregate, s analysis.Subsets) string {
	if s.OpenTasks.Count == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0.0
	for _, p := range agg.Projects {
		h, ok := s.OpenTasks.ByProject[p]
		if !ok {
			continue
		}
		labels = append(labels, label(p))
		values = append(values, fmt.Sprintf("%.1f", h))
		maxVal = math.Max(maxVal, h)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Open Issues with Logged Work (%d issues)\"\n", s.OpenTasks.Count))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Hours\" 0 --> %d\n", axisMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]", strings.Join(values, ", ")))
	return sb.String()
}

// GenerateCLMChart shows the hours logged on the issues linked from each CLM issue.
// Limited to 20 groups to keep the chart readable.
func GenerateCLMChart(s analysis.Subsets) string {
	if s.CLM.Total == 0 {
		return ""
	}

	keys := make([]string, 0, len(s.CLM.TimeSpent))
	for k := range s.CLM.TimeSpent {
		keys = append(keys, k)
	}
	keys = topByValue(keys, s.CLM.TimeSpent, 20)

	var labels, values []string
	maxVal := 0.0
	for _, k := range keys {
		h := s.CLM.TimeSpent[k]
		labels = append(labels, label(k))
		values = append(values, fmt.Sprintf("%.1f", h))
		maxVal = math.Max(maxVal, h)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Time Spent on Issues Linked from %s\"\n", s.CLM.Project))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Hours\" 0 --> %d\n", axisMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]", strings.Join(values, ", ")))
	return sb.String()
}
