package jql

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// MaxKeysPerClause bounds a single `issue in (...)` clause.
	MaxKeysPerClause = 100
	// MaxKeys bounds the total number of keys placed in one query. Keys beyond it are dropped.
	MaxKeys = 1000
)

// FilterID is a saved Jira filter identifier. It accepts both JSON numbers and strings.
type FilterID string

func (f *FilterID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FilterID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FilterID(n.String())
	return nil
}

// Request is an analysis request: a saved filter or a raw query, plus an optional worklog range.
// Empty strings stand for absent values.
type Request struct {
	UseFilter bool     `json:"use_filter" form:"use_filter"`
	FilterID  FilterID `json:"filter_id" form:"filter_id"`
	Query     string   `json:"jql_query" form:"jql_query"`
	DateFrom  string   `json:"date_from" form:"date_from"`
	DateTo    string   `json:"date_to" form:"date_to"`
}

// Base returns the request's base clause: `filter=<id>` in filter mode, the raw query otherwise.
func (r Request) Base() Node {
	if r.UseFilter {
		return Raw("filter=" + string(r.FilterID))
	}
	return Raw(r.Query)
}

// WithDefaultFilter falls back to the saved filter id when the request names neither a filter nor a query,
// so an empty request never becomes an unbounded search.
func (r Request) WithDefaultFilter(id string) Request {
	if !r.UseFilter && strings.TrimSpace(r.Query) == "" {
		r.UseFilter = true
	}
	if r.UseFilter && r.FilterID == "" {
		r.FilterID = FilterID(id)
	}
	return r
}

// Build returns the finalized query string for the request.
func (r Request) Build() string {
	return String(BuildQuery(r.Base(), r.DateFrom, r.DateTo))
}

// DateRange returns the inclusive worklog date conditions. Either bound may be empty.
func DateRange(from, to string) And {
	var conds And
	if from != "" {
		conds = append(conds, Predicate{Field: "worklogDate", Op: ">=", Value: from})
	}
	if to != "" {
		conds = append(conds, Predicate{Field: "worklogDate", Op: "<=", Value: to})
	}
	return conds
}

// BuildQuery combines a base clause with worklog date conditions.
// Both sides are parenthesized only when both are present.
func BuildQuery(base Node, from, to string) Node {
	dates := DateRange(from, to)
	switch {
	case len(dates) == 0:
		return base
	case String(base) == "":
		return dates
	default:
		return And{Paren(base), Paren(dates)}
	}
}

// ProjectQuery narrows an optional base query to one project and worklog range.
func ProjectQuery(base, project, from, to string) Node {
	conds := And{Raw("project = " + project)}
	conds = append(conds, DateRange(from, to)...)
	if base == "" {
		return conds
	}
	return And{Paren(Raw(base)), conds}
}

// BatchKeys splits keys into chunks of at most MaxKeysPerClause, keeping only the first MaxKeys.
func BatchKeys(keys []string) [][]string {
	if len(keys) > MaxKeys {
		log.Warn().Int("keys", len(keys)).Int("limit", MaxKeys).Msg("Too many issue keys for one query, truncating")
		keys = keys[:MaxKeys]
	}

	var batches [][]string
	for start := 0; start < len(keys); start += MaxKeysPerClause {
		end := min(start+MaxKeysPerClause, len(keys))
		batches = append(batches, keys[start:end])
	}
	return batches
}

// IssueKeys returns OR-joined `issue in (...)` clauses covering keys. Returns nil for no keys.
func IssueKeys(keys []string) Node {
	batches := BatchKeys(keys)
	if len(batches) == 0 {
		return nil
	}
	clauses := make(Or, 0, len(batches))
	for _, b := range batches {
		clauses = append(clauses, In{Field: "issue", Values: b})
	}
	return clauses
}

// LinkedIssues selects every issue linked to key.
func LinkedIssues(key string) Node {
	return Func{Field: "issue", Name: "linkedIssues", Arg: key}
}

// BrowseURL returns the Jira issue navigator URL for query.
func BrowseURL(baseURL, query string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return strings.TrimRight(baseURL, "/") + "/issues/?jql=" + escaped
}
