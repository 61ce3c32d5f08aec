package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"jira-charts/internal/job"
	"jira-charts/internal/jql"
	"jira-charts/internal/snapshot"
	"jira-charts/internal/visuals"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// StartAnalysisInput mirrors an HTTP analysis request.
type StartAnalysisInput struct {
	UseFilter bool   `json:"use_filter,omitempty" jsonschema:"query a saved Jira filter instead of jql_query"`
	FilterID  string `json:"filter_id,omitempty" jsonschema:"saved filter id; the configured default is used when empty"`
	JQLQuery  string `json:"jql_query,omitempty" jsonschema:"raw JQL used when use_filter is false"`
	DateFrom  string `json:"date_from,omitempty" jsonschema:"inclusive lower worklog date, YYYY-MM-DD"`
	DateTo    string `json:"date_to,omitempty" jsonschema:"inclusive upper worklog date, YYYY-MM-DD"`
}

// StartAnalysisOutput reports whether a run was launched.
type StartAnalysisOutput struct {
	Started bool       `json:"started"`
	Message string     `json:"message"`
	Status  job.Status `json:"status"`
}

// StatusInput takes no arguments.
type StatusInput struct{}

// ProjectJQLInput selects one project and an optional worklog range.
type ProjectJQLInput struct {
	Project  string `json:"project" jsonschema:"Jira project key"`
	BaseJQL  string `json:"base_jql,omitempty" jsonschema:"query to narrow, for example filter=114476"`
	DateFrom string `json:"date_from,omitempty" jsonschema:"inclusive lower worklog date, YYYY-MM-DD"`
	DateTo   string `json:"date_to,omitempty" jsonschema:"inclusive upper worklog date, YYYY-MM-DD"`
}

// LinkOutput is a Jira issue navigator link.
type LinkOutput struct {
	URL string `json:"url"`
	JQL string `json:"jql"`
}

// ListSnapshotsInput limits the listing.
type ListSnapshotsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of snapshots, newest first; 0 lists all"`
}

// ListSnapshotsOutput lists snapshot folders.
type ListSnapshotsOutput struct {
	Runs []snapshot.Run `json:"runs"`
}

// SnapshotChartsInput names a snapshot folder.
type SnapshotChartsInput struct {
	Folder string `json:"folder" jsonschema:"snapshot folder, YYYYMMDD_HHMMSS"`
}

// SnapshotChartsOutput carries the summary and Mermaid charts of a snapshot.
type SnapshotChartsOutput struct {
	Folder  string            `json:"folder"`
	Summary map[string]any    `json:"summary"`
	Charts  map[string]string `json:"charts"`
}

func schemaFor[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("tool input schema: %v", err))
	}
	return schema
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_analysis",
		Description: "Start an analysis run for a saved filter or a JQL query. Returns immediately; poll get_analysis_status for progress.",
		InputSchema: schemaFor[StartAnalysisInput](),
	}, s.startAnalysis)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_analysis_status",
		Description: "Get the progress and message of the current or last analysis run.",
		InputSchema: schemaFor[StatusInput](),
	}, s.getStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "build_project_jql",
		Description: "Build a Jira link listing one project's issues with work logged in a date range.",
		InputSchema: schemaFor[ProjectJQLInput](),
	}, s.buildProjectJQL)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_snapshots",
		Description: "List analysis snapshots, newest first.",
		InputSchema: schemaFor[ListSnapshotsInput](),
	}, s.listSnapshots)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_snapshot_charts",
		Description: "Get the summary and the Mermaid charts of one analysis snapshot.",
		InputSchema: schemaFor[SnapshotChartsInput](),
	}, s.getSnapshotCharts)
}

func (s *Server) startAnalysis(ctx context.Context, _ *mcp.CallToolRequest, in StartAnalysisInput) (*mcp.CallToolResult, StartAnalysisOutput, error) {
	req := jql.Request{
		UseFilter: in.UseFilter,
		FilterID:  jql.FilterID(in.FilterID),
		Query:     in.JQLQuery,
		DateFrom:  in.DateFrom,
		DateTo:    in.DateTo,
	}.WithDefaultFilter(s.opts.DefaultFilterID)

	out := StartAnalysisOutput{Started: true, Message: "Analysis started."}
	if err := s.pipeline.Start(req); err != nil {
		if !errors.Is(err, job.ErrAlreadyRunning) {
			return nil, StartAnalysisOutput{}, err
		}
		out = StartAnalysisOutput{Message: "An analysis is already running."}
	}
	out.Status = s.pipeline.Tracker().Snapshot()
	log.Info().Bool("started", out.Started).Str("jql", req.Build()).Msg("MCP analysis request")
	return nil, out, nil
}

func (s *Server) getStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, job.Status, error) {
	return nil, s.pipeline.Tracker().Snapshot(), nil
}

func (s *Server) buildProjectJQL(ctx context.Context, _ *mcp.CallToolRequest, in ProjectJQLInput) (*mcp.CallToolResult, LinkOutput, error) {
	if in.Project == "" {
		return nil, LinkOutput{}, errors.New("project is required")
	}
	q := jql.String(jql.ProjectQuery(in.BaseJQL, in.Project, in.DateFrom, in.DateTo))
	return nil, LinkOutput{URL: jql.BrowseURL(s.opts.JiraURL, q), JQL: q}, nil
}

func (s *Server) listSnapshots(ctx context.Context, _ *mcp.CallToolRequest, in ListSnapshotsInput) (*mcp.CallToolResult, ListSnapshotsOutput, error) {
	runs, err := snapshot.List(s.pipeline.Root())
	if err != nil {
		return nil, ListSnapshotsOutput{}, err
	}
	if in.Limit > 0 && len(runs) > in.Limit {
		runs = runs[:in.Limit]
	}
	return nil, ListSnapshotsOutput{Runs: runs}, nil
}

func (s *Server) getSnapshotCharts(ctx context.Context, _ *mcp.CallToolRequest, in SnapshotChartsInput) (*mcp.CallToolResult, SnapshotChartsOutput, error) {
	dir, err := snapshot.Dir(s.pipeline.Root(), in.Folder)
	if err != nil {
		return nil, SnapshotChartsOutput{}, err
	}
	idx, err := snapshot.ReadIndex(dir)
	if err != nil {
		return nil, SnapshotChartsOutput{}, err
	}

	out := SnapshotChartsOutput{Folder: in.Folder, Summary: idx.Summary, Charts: map[string]string{}}
	names := make([]string, 0, len(idx.Charts))
	for name := range idx.Charts {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if name == visuals.SummaryKey {
			continue
		}
		path := idx.Charts[name]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("chart", name).Msg("Chart file unavailable")
			continue
		}
		out.Charts[name] = visuals.Fence(strings.TrimSpace(string(data)))
	}
	return nil, out, nil
}
