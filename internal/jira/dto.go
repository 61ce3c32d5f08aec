package jira

import (
	"encoding/json"
	"time"
)

// SearchResponse is the top-level container for Jira search results.
// Issues are kept verbatim so they can be persisted exactly as received.
type SearchResponse struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []json.RawMessage `json:"issues"`
}

// IssueDTO represents a single issue in the Jira search response.
type IssueDTO struct {
	Key       string        `json:"key"`
	Fields    FieldsDTO     `json:"fields"`
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// FieldsDTO contains the specific fields we care about.
type FieldsDTO struct {
	Project struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"project"`
	Summary   string `json:"summary"`
	IssueType struct {
		Name    string `json:"name"`
		Subtask bool   `json:"subtask"`
	} `json:"issuetype"`
	Status struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		StatusCategory struct {
			Key string `json:"key"`
		} `json:"statusCategory"`
	} `json:"status"`
	Resolution struct {
		Name string `json:"name"`
	} `json:"resolution"`
	ResolutionDate       string          `json:"resolutiondate"`
	Created              string          `json:"created"`
	Updated              string          `json:"updated"`
	TimeOriginalEstimate int64           `json:"timeoriginalestimate"`
	TimeSpent            int64           `json:"timespent"`
	Worklog              *WorklogPageDTO `json:"worklog,omitempty"`
	Comment              *CommentPageDTO `json:"comment,omitempty"`
	IssueLinks           []IssueLinkDTO  `json:"issuelinks,omitempty"`
}

// WorklogPageDTO is the embedded worklog page of an issue.
type WorklogPageDTO struct {
	Total    int          `json:"total"`
	Worklogs []WorklogDTO `json:"worklogs"`
}

// WorklogDTO is a single logged unit of work.
type WorklogDTO struct {
	Started          string `json:"started"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
}

// CommentPageDTO is the embedded comment page of an issue.
type CommentPageDTO struct {
	Total    int               `json:"total"`
	Comments []json.RawMessage `json:"comments"`
}

// IssueLinkDTO is one link to another issue; exactly one side is set.
type IssueLinkDTO struct {
	InwardIssue  *LinkedIssueDTO `json:"inwardIssue,omitempty"`
	OutwardIssue *LinkedIssueDTO `json:"outwardIssue,omitempty"`
}

// LinkedIssueDTO identifies the other end of an issue link.
type LinkedIssueDTO struct {
	Key string `json:"key"`
}

// ChangelogDTO contains historical transitions.
type ChangelogDTO struct {
	Histories []HistoryDTO `json:"histories"`
}

// HistoryDTO is a single entry in the changelog.
type HistoryDTO struct {
	Created string    `json:"created"`
	Items   []ItemDTO `json:"items"`
}

// ItemDTO is a single field change within a history entry.
type ItemDTO struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// TimeLayout is the timestamp format of the Jira REST API.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

// ParseTime is a helper for the strict Jira time format.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
