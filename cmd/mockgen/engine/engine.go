package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"jira-charts/internal/jira"
)

type GeneratorConfig struct {
	Scenario   string // "mild" or "chaos"
	Projects   []string
	CLMProject string
	Count      int
	Seed       int64
	Now        time.Time
}

type status struct {
	name     string
	category string
}

var (
	statusOpen       = status{"Open", "new"}
	statusInProgress = status{"In Progress", "indeterminate"}
	statusDone       = status{"Done", "done"}
)

// Generate produces search result records shaped like Jira's /rest/api/2/search with expand=changelog.
func Generate(cfg GeneratorConfig) []jira.IssueDTO {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if len(cfg.Projects) == 0 {
		cfg.Projects = []string{"CORE", "WEB", "OPS"}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Chaos skips transitions and comments far more often
	skipTransitions, skipComments := 0.05, 0.1
	if cfg.Scenario == "chaos" {
		skipTransitions, skipComments = 0.35, 0.45
	}

	issues := make([]jira.IssueDTO, 0, cfg.Count)
	counters := map[string]int{}
	nextKey := func(project string) string {
		counters[project]++
		return fmt.Sprintf("%s-%d", project, counters[project])
	}

	for i := 0; i < cfg.Count; i++ {
		project := cfg.Projects[rng.Intn(len(cfg.Projects))]
		key := nextKey(project)

		// 1. Lifecycle
		created := cfg.Now.AddDate(0, 0, -(5 + rng.Intn(60)))
		st := []status{statusOpen, statusInProgress, statusDone}[rng.Intn(3)]

		var item jira.IssueDTO
		item.Key = key
		item.Fields.Project.Key = project
		item.Fields.Summary = fmt.Sprintf("Synthetic issue %d", i+1)
		item.Fields.IssueType.Name = "Task"
		item.Fields.Status.Name = st.name
		item.Fields.Status.StatusCategory.Key = st.category
		item.Fields.Created = created.Format(jira.TimeLayout)
		item.Fields.Updated = cfg.Now.Format(jira.TimeLayout)

		// 2. Estimate and worklogs
		estimate := float64(1+rng.Intn(16)) * 3600
		item.Fields.TimeOriginalEstimate = int64(estimate)
		if st != statusOpen || rng.Float64() < 0.3 {
			spent := weibullSample(rng, 1.5, estimate)
			item.Fields.Worklog = worklogs(rng, created, cfg.Now, int64(spent))
			item.Fields.TimeSpent = loggedSeconds(item.Fields.Worklog)
		}

		// 3. Changelog
		if rng.Float64() >= skipTransitions {
			item.Changelog = changelog(created, cfg.Now, st)
		}

		// 4. Resolution
		if st == statusDone {
			item.Fields.Resolution.Name = "Done"
			item.Fields.ResolutionDate = cfg.Now.AddDate(0, 0, -rng.Intn(4)).Format(jira.TimeLayout)
		}

		// 5. Comments
		item.Fields.Comment = &jira.CommentPageDTO{}
		if rng.Float64() >= skipComments {
			n := 1 + rng.Intn(4)
			item.Fields.Comment.Total = n
			for c := 0; c < n; c++ {
				item.Fields.Comment.Comments = append(item.Fields.Comment.Comments, json.RawMessage(fmt.Sprintf(`{"id":"%d"}`, c+1)))
			}
		}

		issues = append(issues, item)
	}

	// 6. CLM issues linking to the generated work
	if cfg.CLMProject != "" && len(issues) > 0 {
		for i := 0; i < max(1, cfg.Count/10); i++ {
			var item jira.IssueDTO
			item.Key = nextKey(cfg.CLMProject)
			item.Fields.Project.Key = cfg.CLMProject
			item.Fields.Summary = fmt.Sprintf("Change request %d", i+1)
			item.Fields.IssueType.Name = "Change Request"
			item.Fields.Status.Name = statusInProgress.name
			item.Fields.Status.StatusCategory.Key = statusInProgress.category
			item.Fields.Created = cfg.Now.AddDate(0, 0, -30).Format(jira.TimeLayout)
			item.Changelog = changelog(cfg.Now.AddDate(0, 0, -30), cfg.Now, statusInProgress)
			item.Fields.Comment = &jira.CommentPageDTO{Total: 1, Comments: []json.RawMessage{json.RawMessage(`{"id":"1"}`)}}

			for l := 0; l < 1+rng.Intn(5); l++ {
				target := issues[rng.Intn(len(issues))].Key
				item.Fields.IssueLinks = append(item.Fields.IssueLinks, jira.IssueLinkDTO{
					OutwardIssue: &jira.LinkedIssueDTO{Key: target},
				})
			}
			issues = append(issues, item)
		}
	}

	return issues
}

func worklogs(rng *rand.Rand, from, to time.Time, total int64) *jira.WorklogPageDTO {
	page := &jira.WorklogPageDTO{}
	n := 1 + rng.Intn(3)
	span := to.Sub(from)
	for i := 0; i < n; i++ {
		started := from.Add(time.Duration(rng.Int63n(int64(span))))
		page.Worklogs = append(page.Worklogs, jira.WorklogDTO{
			Started:          started.Format(jira.TimeLayout),
			TimeSpentSeconds: total / int64(n),
		})
	}
	page.Total = len(page.Worklogs)
	return page
}

func loggedSeconds(page *jira.WorklogPageDTO) int64 {
	var total int64
	for _, w := range page.Worklogs {
		total += w.TimeSpentSeconds
	}
	return total
}

func changelog(created, now time.Time, final status) *jira.ChangelogDTO {
	cl := &jira.ChangelogDTO{}
	if final == statusOpen {
		return cl
	}
	started := created.Add(now.Sub(created) / 3)
	cl.Histories = append(cl.Histories, jira.HistoryDTO{
		Created: started.Format(jira.TimeLayout),
		Items:   []jira.ItemDTO{{Field: "status", FromString: statusOpen.name, ToString: statusInProgress.name}},
	})
	if final == statusDone {
		cl.Histories = append(cl.Histories, jira.HistoryDTO{
			Created: created.Add(2 * now.Sub(created) / 3).Format(jira.TimeLayout),
			Items:   []jira.ItemDTO{{Field: "status", FromString: statusInProgress.name, ToString: statusDone.name}},
		})
	}
	return cl
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes the issues as a single search response page, the format JIRA_MOCK_FILE reads.
func Save(path string, issues []jira.IssueDTO) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	raw := make([]json.RawMessage, 0, len(issues))
	for _, issue := range issues {
		b, err := json.Marshal(issue)
		if err != nil {
			return fmt.Errorf("encode %s: %w", issue.Key, err)
		}
		raw = append(raw, b)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	resp := jira.SearchResponse{StartAt: 0, MaxResults: len(raw), Total: len(raw), Issues: raw}
	if err := enc.Encode(resp); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
