package analysis

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
)

// CountBreakdown is a per-project issue count with its total.
type CountBreakdown struct {
	ByProject map[string]int `json:"by_project"`
	Total     int            `json:"total"`
}

// HoursBreakdown is a per-project sum of hours with the total hours and the number of issues behind it.
type HoursBreakdown struct {
	ByProject map[string]float64 `json:"by_project"`
	Total     float64            `json:"total"`
	Count     int                `json:"count"`
}

// ProjectAggregate holds the per-project metrics of one run.
// Projects is the sorted union of the keys of the three primary maps.
type ProjectAggregate struct {
	Projects         []string           `json:"projects"`
	ProjectCounts    map[string]int     `json:"project_counts"`
	ProjectEstimates map[string]float64 `json:"project_estimates"`
	ProjectTimeSpent map[string]float64 `json:"project_time_spent"`
	NoTransitions    CountBreakdown     `json:"no_transitions"`
}

func emptyCounts() CountBreakdown {
	return CountBreakdown{ByProject: map[string]int{}}
}

func emptyHours() HoursBreakdown {
	return HoursBreakdown{ByProject: map[string]float64{}}
}

// EmptyAggregate is the aggregate of an empty table, and the fallback when aggregation fails.
func EmptyAggregate() ProjectAggregate {
	return ProjectAggregate{
		Projects:         []string{},
		ProjectCounts:    map[string]int{},
		ProjectEstimates: map[string]float64{},
		ProjectTimeSpent: map[string]float64{},
		NoTransitions:    emptyCounts(),
	}
}

// Aggregate computes per-project counts and hour sums.
// On failure it returns EmptyAggregate together with the error; callers log it and carry on.
func Aggregate(t Table) (agg ProjectAggregate, err error) {
	defer func() {
		if r := recover(); r != nil {
			agg = EmptyAggregate()
			err = fmt.Errorf("aggregation failed: %v", r)
		}
	}()

	agg = EmptyAggregate()
	for _, row := range t.rows {
		if err := checkHours(row); err != nil {
			return EmptyAggregate(), err
		}
		agg.ProjectCounts[row.Project]++
		agg.ProjectEstimates[row.Project] += row.OriginalEstimateHours
		agg.ProjectTimeSpent[row.Project] += row.TimeSpentHours

		if row.NoTransitions {
			agg.NoTransitions.ByProject[row.Project]++
			agg.NoTransitions.Total++
		}
	}

	roundAll(agg.ProjectEstimates)
	roundAll(agg.ProjectTimeSpent)
	agg.Projects = unionKeys(agg.ProjectCounts, agg.ProjectEstimates, agg.ProjectTimeSpent)
	return agg, nil
}

func checkHours(row Row) error {
	for _, h := range []float64{row.OriginalEstimateHours, row.TimeSpentHours} {
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return fmt.Errorf("aggregation failed: issue %s has non-finite hours", row.Key)
		}
	}
	return nil
}

func unionKeys(counts map[string]int, estimates, spent map[string]float64) []string {
	set := make(map[string]struct{}, len(counts))
	for k := range counts {
		set[k] = struct{}{}
	}
	for k := range estimates {
		set[k] = struct{}{}
	}
	for k := range spent {
		set[k] = struct{}{}
	}
	// Never nil: an empty table still serializes "projects": []
	projects := slices.Sorted(maps.Keys(set))
	if projects == nil {
		projects = []string{}
	}
	return projects
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundAll(m map[string]float64) {
	for k, v := range m {
		m[k] = round2(v)
	}
}

// TopProjects orders projects by estimate plus time spent, descending, and keeps the first n.
// Ties are broken by project key.
func TopProjects(agg ProjectAggregate, n int) []string {
	projects := append([]string{}, agg.Projects...)
	total := func(p string) float64 {
		return agg.ProjectEstimates[p] + agg.ProjectTimeSpent[p]
	}
	slices.SortFunc(projects, func(a, b string) int {
		if c := cmp.Compare(total(b), total(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if n >= 0 && len(projects) > n {
		projects = projects[:n]
	}
	return projects
}
