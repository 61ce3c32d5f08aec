package jira

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrNotAnObject is returned when a raw record is not a JSON object.
var ErrNotAnObject = errors.New("issue record is not a JSON object")

// DecodeIssue maps a raw search record onto the domain Issue.
func DecodeIssue(raw json.RawMessage) (Issue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Issue{}, ErrNotAnObject
	}

	var dto IssueDTO
	if err := json.Unmarshal(trimmed, &dto); err != nil {
		return Issue{}, fmt.Errorf("decode issue: %w", err)
	}
	return MapIssue(dto), nil
}

// MapIssue transforms a Jira DTO into a domain Issue.
func MapIssue(item IssueDTO) Issue {
	issue := Issue{
		Key:                     item.Key,
		ProjectKey:              item.Fields.Project.Key,
		Summary:                 item.Fields.Summary,
		IssueType:               item.Fields.IssueType.Name,
		IsSubtask:               item.Fields.IssueType.Subtask,
		Status:                  item.Fields.Status.Name,
		StatusCategory:          item.Fields.Status.StatusCategory.Key,
		Resolution:              item.Fields.Resolution.Name,
		OriginalEstimateSeconds: item.Fields.TimeOriginalEstimate,
		TimeSpentSeconds:        item.Fields.TimeSpent,
	}

	// Project key falls back to the issue key prefix
	if issue.ProjectKey == "" {
		for i := 0; i < len(issue.Key); i++ {
			if issue.Key[i] == '-' {
				issue.ProjectKey = issue.Key[:i]
				break
			}
		}
	}

	if t, err := ParseTime(item.Fields.Created); err == nil {
		issue.Created = t
	}
	if t, err := ParseTime(item.Fields.Updated); err == nil {
		issue.Updated = t
	}
	if item.Fields.ResolutionDate != "" {
		if t, err := ParseTime(item.Fields.ResolutionDate); err == nil {
			issue.ResolutionDate = &t
		}
	}

	if item.Changelog != nil {
		issue.Transitions = ProcessChangelog(item.Changelog)
	}

	if wl := item.Fields.Worklog; wl != nil {
		var logged int64
		issue.WorklogDates, logged = worklogDates(wl.Worklogs)
		if issue.TimeSpentSeconds == 0 {
			issue.TimeSpentSeconds = logged
		}
	}

	if c := item.Fields.Comment; c != nil {
		issue.CommentCount = max(c.Total, len(c.Comments))
	}

	for _, link := range item.Fields.IssueLinks {
		switch {
		case link.OutwardIssue != nil && link.OutwardIssue.Key != "":
			issue.LinkedKeys = append(issue.LinkedKeys, link.OutwardIssue.Key)
		case link.InwardIssue != nil && link.InwardIssue.Key != "":
			issue.LinkedKeys = append(issue.LinkedKeys, link.InwardIssue.Key)
		}
	}
	slices.Sort(issue.LinkedKeys)
	issue.LinkedKeys = slices.Compact(issue.LinkedKeys)

	return issue
}

// ProcessChangelog extracts the status transitions of a changelog in chronological order.
func ProcessChangelog(changelog *ChangelogDTO) []StatusTransition {
	var transitions []StatusTransition
	for _, h := range changelog.Histories {
		hDate, err := ParseTime(h.Created)
		if err != nil {
			continue
		}
		for _, itm := range h.Items {
			if itm.Field == "status" {
				transitions = append(transitions, StatusTransition{
					FromStatus: itm.FromString,
					ToStatus:   itm.ToString,
					Date:       hDate,
				})
			}
		}
	}

	slices.SortStableFunc(transitions, func(a, b StatusTransition) int {
		return a.Date.Compare(b.Date)
	})
	return transitions
}

// worklogDates returns the distinct calendar days work was logged on, plus the total logged seconds.
func worklogDates(worklogs []WorklogDTO) ([]string, int64) {
	var dates []string
	var total int64
	for _, w := range worklogs {
		total += w.TimeSpentSeconds
		if t, err := ParseTime(w.Started); err == nil {
			dates = append(dates, t.Format("2006-01-02"))
		} else if len(w.Started) >= 10 {
			dates = append(dates, w.Started[:10])
		}
	}
	slices.Sort(dates)
	return slices.Compact(dates), total
}
