package visuals

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jira-charts/internal/analysis"
)

func sampleTable() analysis.Table {
	return analysis.NewTable([]analysis.Row{
		{Key: "ABC-1", Project: "ABC", OriginalEstimateHours: 4, TimeSpentHours: 2.5, HasTransitions: true, IsOpen: true, CommentCount: 1},
		{Key: "ABC-2", Project: "ABC", TimeSpentHours: 1, NoTransitions: true, IsOpen: false, CommentCount: 1},
		{Key: "XYZ-1", Project: "XYZ", OriginalEstimateHours: 8, HasTransitions: true, IsOpen: false, CommentCount: 2},
		{Key: "CLM-1", Project: "CLM", HasTransitions: true, CommentCount: 1, LinkedKeys: []string{"ABC-1"}},
	})
}

func TestGenerateEstimateVsSpent(t *testing.T) {
	agg, err := analysis.Aggregate(sampleTable())
	if err != nil {
		t.Fatal(err)
	}

	chart := GenerateEstimateVsSpent(agg, 10)
	if !strings.HasPrefix(chart, "xychart-beta\n") {
		t.Errorf("expected xychart-beta header, got %q", chart)
	}
	// XYZ (8h) ranks before ABC (4h + 3.5h)
	if !strings.Contains(chart, `x-axis ["XYZ", "ABC", "CLM"]`) {
		t.Errorf("unexpected axis ordering:\n%s", chart)
	}
	if !strings.Contains(chart, "bar [8.0, 4.0, 0.0]") || !strings.Contains(chart, "bar [0.0, 3.5, 0.0]") {
		t.Errorf("unexpected bar series:\n%s", chart)
	}

	if GenerateEstimateVsSpent(analysis.EmptyAggregate(), 10) != "" {
		t.Errorf("expected no chart for an empty aggregate")
	}
}

func TestGenerateProjectDistribution(t *testing.T) {
	agg, _ := analysis.Aggregate(sampleTable())
	chart := GenerateProjectDistribution(agg)
	if !strings.Contains(chart, `"ABC" : 2`) || !strings.Contains(chart, `"XYZ" : 1`) {
		t.Errorf("unexpected pie chart:\n%s", chart)
	}

	fenced := Fence(chart)
	if !strings.HasPrefix(fenced, "```mermaid\n") || !strings.HasSuffix(fenced, "\n```") {
		t.Errorf("unexpected fence: %q", fenced)
	}
	if Fence("") != "" {
		t.Errorf("expected empty fence for empty chart")
	}
}

func TestMermaidRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	r := MermaidRenderer{CLMProject: "CLM"}

	index, err := r.Render(context.Background(), sampleTable(), dir)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, name := range []string{ChartProjectDistribution, ChartEstimateVsSpent, ChartNoTransitions, ChartOpenTasks, ChartCLM, SummaryKey} {
		rel, ok := index[name]
		if !ok {
			t.Errorf("expected chart %s in index", name)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("chart %s not written: %v", name, err)
		}
	}
	// every closed issue has comments
	if _, ok := index[ChartClosedNoComments]; ok {
		t.Errorf("expected empty closed-without-comments chart to be skipped")
	}

	data, err := os.ReadFile(filepath.Join(dir, index[SummaryKey]))
	if err != nil {
		t.Fatal(err)
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if sum.TotalIssues != 4 || sum.TotalProjects != 3 || sum.TotalEstimateHours != 12 || sum.TotalTimeSpentHours != 3.5 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if sum.CLMIssues != 1 || sum.OpenTasksWithWork != 1 {
		t.Errorf("unexpected subset counts in summary: %+v", sum)
	}
}

func TestMermaidRenderer_EmptyTable(t *testing.T) {
	dir := t.TempDir()
	index, err := MermaidRenderer{}.Render(context.Background(), analysis.NewTable(nil), dir)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(index) != 1 || index[SummaryKey] == "" {
		t.Errorf("expected only the summary for an empty table, got %v", index)
	}
}

func TestMermaidRenderer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (MermaidRenderer{}).Render(ctx, sampleTable(), t.TempDir()); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
