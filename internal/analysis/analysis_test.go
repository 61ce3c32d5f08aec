package analysis

import (
	"encoding/json"
	"math"
	"slices"
	"testing"

	"jira-charts/internal/jira"
)

func sampleTable() Table {
	return NewTable([]Row{
		{Key: "ABC-1", Project: "ABC", OriginalEstimateHours: 4, TimeSpentHours: 2.5, HasTransitions: true, IsOpen: true, WorklogDates: []string{"2024-01-02"}, CommentCount: 1},
		{Key: "ABC-2", Project: "ABC", OriginalEstimateHours: 0, TimeSpentHours: 1, NoTransitions: true, IsOpen: true, WorklogDates: []string{"2024-01-03"}},
		{Key: "XYZ-1", Project: "XYZ", OriginalEstimateHours: 8, TimeSpentHours: 0, HasTransitions: true, IsOpen: false, CommentCount: 0},
		{Key: "CLM-1", Project: "CLM", TimeSpentHours: 0.5, NoTransitions: true, IsOpen: false, CommentCount: 3, LinkedKeys: []string{"ABC-1", "XYZ-1", "ZZZ-404"}},
	})
}

func TestAggregate_Empty(t *testing.T) {
	agg, err := Aggregate(NewTable(nil))
	if err != nil {
		t.Fatalf("expected no error on empty table, got %v", err)
	}

	out, err := json.Marshal(agg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"projects":[],"project_counts":{},"project_estimates":{},"project_time_spent":{},"no_transitions":{"by_project":{},"total":0}}`
	if string(out) != want {
		t.Errorf("unexpected empty aggregate:\n got %s\nwant %s", out, want)
	}
}

func TestAggregate_OnlyMalformedRecords(t *testing.T) {
	table := BuildTable([]json.RawMessage{json.RawMessage(`"not-an-object"`)})
	agg, err := Aggregate(table)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.Projects == nil {
		t.Fatal("expected an empty, non-nil project list")
	}
	if top := TopProjects(agg, 10); top == nil || len(top) != 0 {
		t.Errorf("expected empty top projects, got %#v", top)
	}
}

func TestAggregate_Sums(t *testing.T) {
	agg, err := Aggregate(sampleTable())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if agg.ProjectCounts["ABC"] != 2 || agg.ProjectCounts["XYZ"] != 1 || agg.ProjectCounts["CLM"] != 1 {
		t.Errorf("unexpected counts: %v", agg.ProjectCounts)
	}
	if agg.ProjectEstimates["ABC"] != 4 || agg.ProjectEstimates["XYZ"] != 8 {
		t.Errorf("unexpected estimates: %v", agg.ProjectEstimates)
	}
	if agg.ProjectTimeSpent["ABC"] != 3.5 || agg.ProjectTimeSpent["XYZ"] != 0 {
		t.Errorf("unexpected time spent: %v", agg.ProjectTimeSpent)
	}
	if agg.NoTransitions.Total != 2 || agg.NoTransitions.ByProject["ABC"] != 1 || agg.NoTransitions.ByProject["CLM"] != 1 {
		t.Errorf("unexpected no-transition breakdown: %+v", agg.NoTransitions)
	}
	if !slices.Equal(agg.Projects, []string{"ABC", "CLM", "XYZ"}) {
		t.Errorf("unexpected projects: %v", agg.Projects)
	}
}

func TestAggregate_ProjectsIsUnionOfPrimaryKeys(t *testing.T) {
	tables := []Table{
		NewTable(nil),
		sampleTable(),
		NewTable([]Row{{Key: "A-1", Project: "A"}, {Key: "B-1", Project: "B", TimeSpentHours: 1}}),
	}

	for i, table := range tables {
		agg, err := Aggregate(table)
		if err != nil {
			t.Fatalf("table %d: %v", i, err)
		}
		seen := make(map[string]bool)
		for _, p := range agg.Projects {
			seen[p] = true
		}
		for p := range agg.ProjectCounts {
			if !seen[p] {
				t.Errorf("table %d: project %s missing from projects", i, p)
			}
		}
		for p := range agg.ProjectEstimates {
			if !seen[p] {
				t.Errorf("table %d: project %s missing from projects", i, p)
			}
		}
		for p := range agg.ProjectTimeSpent {
			if !seen[p] {
				t.Errorf("table %d: project %s missing from projects", i, p)
			}
		}
		if len(seen) != len(agg.ProjectCounts) {
			t.Errorf("table %d: projects has keys no primary map carries", i)
		}
	}
}

func TestAggregate_FailureYieldsEmpty(t *testing.T) {
	table := NewTable([]Row{{Key: "BAD-1", Project: "BAD", TimeSpentHours: math.NaN()}})

	agg, err := Aggregate(table)
	if err == nil {
		t.Fatalf("expected an error for non-finite hours")
	}
	if len(agg.Projects) != 0 || len(agg.ProjectCounts) != 0 || agg.NoTransitions.ByProject == nil || agg.NoTransitions.Total != 0 {
		t.Errorf("expected empty aggregate on failure, got %+v", agg)
	}
}

func TestDeriveSubsets(t *testing.T) {
	s, err := DeriveSubsets(sampleTable(), "CLM")
	if err != nil {
		t.Fatalf("DeriveSubsets failed: %v", err)
	}

	if s.OpenTasks.Count != 2 || s.OpenTasks.Total != 3.5 || s.OpenTasks.ByProject["ABC"] != 3.5 {
		t.Errorf("unexpected open tasks: %+v", s.OpenTasks)
	}
	if s.ClosedNoComments.Total != 1 || s.ClosedNoComments.ByProject["XYZ"] != 1 {
		t.Errorf("unexpected closed-without-comments: %+v", s.ClosedNoComments)
	}
	if s.CLM.Total != 1 || len(s.CLM.Groups["CLM-1"]) != 3 {
		t.Errorf("unexpected CLM groups: %+v", s.CLM)
	}
	// ABC-1 (2.5h) + XYZ-1 (0h); ZZZ-404 is not in the table
	if s.CLM.TimeSpent["CLM-1"] != 2.5 {
		t.Errorf("expected 2.5h linked to CLM-1, got %v", s.CLM.TimeSpent["CLM-1"])
	}

	empty, err := DeriveSubsets(NewTable(nil), "")
	if err != nil || empty.OpenTasks.ByProject == nil || empty.CLM.Groups == nil {
		t.Errorf("expected initialised empty subsets, got %+v (%v)", empty, err)
	}
}

func TestBuildKeyIndex(t *testing.T) {
	idx := BuildKeyIndex(sampleTable(), "CLM")

	if got := idx.Keys(SubsetProjects, "ABC"); !slices.Equal(got, []string{"ABC-1", "ABC-2"}) {
		t.Errorf("unexpected project keys: %v", got)
	}
	if got := idx.Keys(SubsetNoTransitions, "ABC"); !slices.Equal(got, []string{"ABC-2"}) {
		t.Errorf("unexpected no-transition keys: %v", got)
	}
	if got := idx.Keys(SubsetOpenTasks, "ABC"); len(got) != 2 {
		t.Errorf("unexpected open task keys: %v", got)
	}
	if got := idx.Keys(SubsetClosedNoComments, "XYZ"); !slices.Equal(got, []string{"XYZ-1"}) {
		t.Errorf("unexpected closed keys: %v", got)
	}
	if got := idx.Keys(SubsetCLM, "CLM-1"); !slices.Equal(got, []string{"ABC-1", "XYZ-1", "ZZZ-404"}) {
		t.Errorf("unexpected CLM keys: %v", got)
	}
	if got := idx.Keys("unknown", "ABC"); got != nil {
		t.Errorf("expected nil for unknown subset, got %v", got)
	}
}

func TestBuildTable_SkipsMalformed(t *testing.T) {
	records := []json.RawMessage{
		json.RawMessage(`{"key":"ABC-1","fields":{"project":{"key":"ABC"},"timespent":7200,"status":{"statusCategory":{"key":"done"}}}}`),
		json.RawMessage(`"not an issue"`),
		json.RawMessage(`{"key":"","fields":{}}`),
	}

	table := BuildTable(records)
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	rows := table.Rows()
	if rows[0].TimeSpentHours != 2 || rows[0].IsOpen {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	// No transitions but worked: counts as a no-transition issue
	if !rows[0].NoTransitions {
		t.Errorf("expected no_transitions for a worked issue without changelog")
	}
	if rows[1].Project != UnknownProject {
		t.Errorf("expected unknown project, got %q", rows[1].Project)
	}
	if rows[1].WorklogDates == nil || rows[1].LinkedKeys == nil {
		t.Errorf("expected non-nil list defaults")
	}

	out, _ := json.Marshal(NewTable(nil))
	if string(out) != "[]" {
		t.Errorf("expected empty table to export as [], got %s", out)
	}
}

func TestNewRow_OpenState(t *testing.T) {
	tests := []struct {
		name  string
		issue jira.Issue
		open  bool
	}{
		{"done category", jira.Issue{StatusCategory: "done"}, false},
		{"in progress", jira.Issue{StatusCategory: "indeterminate"}, true},
		{"unknown, unresolved", jira.Issue{}, true},
		{"unknown, resolved", jira.Issue{Resolution: "Fixed"}, false},
	}
	for _, tt := range tests {
		if got := NewRow(tt.issue).IsOpen; got != tt.open {
			t.Errorf("%s: expected open=%v, got %v", tt.name, tt.open, got)
		}
	}
}

func TestTopProjects(t *testing.T) {
	agg, _ := Aggregate(sampleTable())
	top := TopProjects(agg, 2)
	// XYZ: 8, ABC: 4+3.5
	if !slices.Equal(top, []string{"XYZ", "ABC"}) {
		t.Errorf("unexpected ranking: %v", top)
	}
}
