package analysis

import (
	"fmt"
	"slices"
)

// Subset names, shared by chart data, the issue-key index and JQL drill-down links.
const (
	SubsetProjects         = "projects"
	SubsetNoTransitions    = "no_transitions"
	SubsetOpenTasks        = "open_tasks"
	SubsetClosedNoComments = "closed_no_comments"
	SubsetCLM              = "clm"
)

// CLMGroups maps each issue of the CLM project to the issues linked from it.
type CLMGroups struct {
	Project   string              `json:"project"`
	Groups    map[string][]string `json:"groups"`
	TimeSpent map[string]float64  `json:"time_spent"`
	Total     int                 `json:"total"`
}

// Subsets are the specialised slices of a table shown next to the project charts.
type Subsets struct {
	OpenTasks        HoursBreakdown `json:"open_tasks"`
	ClosedNoComments CountBreakdown `json:"closed_no_comments"`
	CLM              CLMGroups      `json:"clm"`
}

// EmptySubsets is the fallback when subset derivation fails.
func EmptySubsets(clmProject string) Subsets {
	return Subsets{
		OpenTasks:        emptyHours(),
		ClosedNoComments: emptyCounts(),
		CLM: CLMGroups{
			Project:   clmProject,
			Groups:    map[string][]string{},
			TimeSpent: map[string]float64{},
		},
	}
}

// openWithWork reports whether a still-open issue already has logged work.
func openWithWork(r Row) bool {
	return r.IsOpen && (r.TimeSpentHours > 0 || len(r.WorklogDates) > 0)
}

// closedWithoutComments reports whether an issue was closed without any discussion.
func closedWithoutComments(r Row) bool {
	return !r.IsOpen && r.CommentCount == 0
}

func inCLM(r Row, clmProject string) bool {
	return clmProject != "" && r.Project == clmProject
}

// DeriveSubsets computes the open-with-work, closed-without-comments and CLM subsets.
// Like Aggregate, failures yield EmptySubsets plus the error.
func DeriveSubsets(t Table, clmProject string) (s Subsets, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = EmptySubsets(clmProject)
			err = fmt.Errorf("subset derivation failed: %v", r)
		}
	}()

	s = EmptySubsets(clmProject)
	spentByKey := make(map[string]float64, len(t.rows))
	for _, row := range t.rows {
		if err := checkHours(row); err != nil {
			return EmptySubsets(clmProject), err
		}
		spentByKey[row.Key] = row.TimeSpentHours
	}

	for _, row := range t.rows {
		if openWithWork(row) {
			s.OpenTasks.ByProject[row.Project] += row.TimeSpentHours
			s.OpenTasks.Total += row.TimeSpentHours
			s.OpenTasks.Count++
		}
		if closedWithoutComments(row) {
			s.ClosedNoComments.ByProject[row.Project]++
			s.ClosedNoComments.Total++
		}
		if inCLM(row, clmProject) {
			linked := slices.Clone(row.LinkedKeys)
			if linked == nil {
				linked = []string{}
			}
			s.CLM.Groups[row.Key] = linked

			spent := 0.0
			for _, k := range linked {
				spent += spentByKey[k]
			}
			s.CLM.TimeSpent[row.Key] = round2(spent)
			s.CLM.Total++
		}
	}

	roundAll(s.OpenTasks.ByProject)
	s.OpenTasks.Total = round2(s.OpenTasks.Total)
	return s, nil
}

// KeyIndex maps subset → group → sorted issue keys. Groups are projects, or CLM issue keys for SubsetCLM.
type KeyIndex map[string]map[string][]string

// BuildKeyIndex records which issues make up every bar of every chart.
func BuildKeyIndex(t Table, clmProject string) KeyIndex {
	idx := KeyIndex{
		SubsetProjects:         {},
		SubsetNoTransitions:    {},
		SubsetOpenTasks:        {},
		SubsetClosedNoComments: {},
		SubsetCLM:              {},
	}

	add := func(subset, group, key string) {
		idx[subset][group] = append(idx[subset][group], key)
	}

	for _, row := range t.rows {
		add(SubsetProjects, row.Project, row.Key)
		if row.NoTransitions {
			add(SubsetNoTransitions, row.Project, row.Key)
		}
		if openWithWork(row) {
			add(SubsetOpenTasks, row.Project, row.Key)
		}
		if closedWithoutComments(row) {
			add(SubsetClosedNoComments, row.Project, row.Key)
		}
		if inCLM(row, clmProject) {
			idx[SubsetCLM][row.Key] = append(idx[SubsetCLM][row.Key], row.LinkedKeys...)
		}
	}

	for _, groups := range idx {
		for g, keys := range groups {
			if keys == nil {
				keys = []string{}
			}
			slices.Sort(keys)
			groups[g] = slices.Compact(keys)
		}
	}
	return idx
}

// Keys returns the issue keys of one chart bar, or nil when the index has no such group.
func (idx KeyIndex) Keys(subset, group string) []string {
	return idx[subset][group]
}
