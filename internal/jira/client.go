package jira

import (
	"context"
	"time"
)

// Issue is the subset of Jira issue data the analysis pipeline needs.
type Issue struct {
	Key            string
	ProjectKey     string
	Summary        string
	IssueType      string
	IsSubtask      bool
	Status         string
	StatusCategory string
	Resolution     string
	Created        time.Time
	Updated        time.Time
	ResolutionDate *time.Time

	OriginalEstimateSeconds int64
	TimeSpentSeconds        int64

	Transitions  []StatusTransition
	WorklogDates []string
	CommentCount int
	LinkedKeys   []string
}

// StatusTransition is a single status change taken from the changelog.
type StatusTransition struct {
	FromStatus string
	ToStatus   string
	Date       time.Time
}

// Client is the interface for interacting with Jira.
type Client interface {
	SearchIssues(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error)
	GetFilter(ctx context.Context, id string) (map[string]any, error)
}

// Config holds the authentication and connection settings for Jira.
type Config struct {
	BaseURL string

	// Personal Access Token, preferred over cookies when set
	Token string

	// Data Center Cookies
	XsrfToken  string
	SessionID  string
	RememberMe string

	// Load Balancer Cookies
	GCILB string
	GCLB  string

	// Performance Settings
	RequestDelay time.Duration
	PageSize     int
	Concurrency  int
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewDataCenterClient(cfg)
}
