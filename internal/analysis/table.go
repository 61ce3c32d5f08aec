package analysis

import (
	"encoding/json"
	"slices"
	"time"

	"jira-charts/internal/jira"

	"github.com/rs/zerolog/log"
)

// UnknownProject groups issues whose project could not be determined.
const UnknownProject = "UNKNOWN"

// Row is the fixed-schema view of one issue used by every downstream step.
type Row struct {
	Key                   string     `json:"key"`
	Project               string     `json:"project"`
	Summary               string     `json:"summary"`
	IssueType             string     `json:"issue_type"`
	IsSubtask             bool       `json:"is_subtask"`
	Status                string     `json:"status"`
	StatusCategory        string     `json:"status_category"`
	Created               *time.Time `json:"created"`
	Updated               *time.Time `json:"updated"`
	ResolutionDate        *time.Time `json:"resolution_date"`
	OriginalEstimateHours float64    `json:"original_estimate_hours"`
	TimeSpentHours        float64    `json:"time_spent_hours"`
	HasTransitions        bool       `json:"has_transitions"`
	NoTransitions         bool       `json:"no_transitions"`
	IsOpen                bool       `json:"is_open"`
	WorklogDates          []string   `json:"worklog_dates"`
	CommentCount          int        `json:"comment_count"`
	LinkedKeys            []string   `json:"linked_keys"`
}

// NewRow builds a Row from a mapped issue, defaulting anything missing.
func NewRow(issue jira.Issue) Row {
	row := Row{
		Key:                   issue.Key,
		Project:               issue.ProjectKey,
		Summary:               issue.Summary,
		IssueType:             issue.IssueType,
		IsSubtask:             issue.IsSubtask,
		Status:                issue.Status,
		StatusCategory:        issue.StatusCategory,
		ResolutionDate:        issue.ResolutionDate,
		OriginalEstimateHours: secondsToHours(issue.OriginalEstimateSeconds),
		TimeSpentHours:        secondsToHours(issue.TimeSpentSeconds),
		HasTransitions:        len(issue.Transitions) > 0,
		WorklogDates:          slices.Clone(issue.WorklogDates),
		CommentCount:          issue.CommentCount,
		LinkedKeys:            slices.Clone(issue.LinkedKeys),
	}

	if row.Project == "" {
		row.Project = UnknownProject
	}
	if !issue.Created.IsZero() {
		t := issue.Created
		row.Created = &t
	}
	if !issue.Updated.IsZero() {
		t := issue.Updated
		row.Updated = &t
	}
	if row.WorklogDates == nil {
		row.WorklogDates = []string{}
	}
	if row.LinkedKeys == nil {
		row.LinkedKeys = []string{}
	}

	worked := row.TimeSpentHours > 0 || len(row.WorklogDates) > 0
	row.NoTransitions = !row.HasTransitions && worked

	switch row.StatusCategory {
	case "done":
		row.IsOpen = false
	case "":
		row.IsOpen = issue.Resolution == "" && issue.ResolutionDate == nil
	default:
		row.IsOpen = true
	}

	return row
}

func secondsToHours(s int64) float64 {
	if s <= 0 {
		return 0
	}
	return float64(s) / 3600.0
}

// Table is an immutable, row-per-issue view of a fetch.
type Table struct {
	rows []Row
}

// NewTable creates a Table holding a copy of rows.
func NewTable(rows []Row) Table {
	return Table{rows: slices.Clone(rows)}
}

// BuildTable decodes raw issue records into a Table. Records that are not issue objects are skipped.
func BuildTable(records []json.RawMessage) Table {
	rows := make([]Row, 0, len(records))
	skipped := 0
	for i, raw := range records {
		issue, err := jira.DecodeIssue(raw)
		if err != nil {
			skipped++
			log.Warn().Err(err).Int("index", i).Msg("Skipping malformed issue record")
			continue
		}
		rows = append(rows, NewRow(issue))
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("kept", len(rows)).Msg("Some issue records could not be used")
	}
	return Table{rows: rows}
}

// Rows returns a copy of the table's rows.
func (t Table) Rows() []Row {
	return slices.Clone(t.rows)
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.rows)
}

// MarshalJSON exports the table as an array of row objects.
func (t Table) MarshalJSON() ([]byte, error) {
	if t.rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.rows)
}
