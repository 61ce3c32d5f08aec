package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"jira-charts/internal/analysis"
	"jira-charts/internal/jql"

	"github.com/rs/zerolog/log"
)

// TimestampLayout names snapshot directories. Two runs in the same second share a directory.
const TimestampLayout = "20060102_150405"

const (
	rawDataFile   = "data/raw_data.json"
	chartDataFile = "data/chart_data.json"
	keyIndexFile  = "data/issue_keys.json"
	indexFile     = "index.json"
	rawIssuesFile = "raw_issues.json"
	summaryKey    = "summary"
)

var (
	// ErrInvalidFolder is returned for folder names that are not snapshot timestamps.
	ErrInvalidFolder = errors.New("invalid snapshot folder")

	folderPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)
)

// FilterParams echoes the request of a run. The fields of the inactive mode are null.
type FilterParams struct {
	FilterID *string `json:"filter_id"`
	JQL      *string `json:"jql"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParamsFrom captures the request parameters that shaped a run.
func ParamsFrom(req jql.Request) FilterParams {
	p := FilterParams{
		DateFrom: optional(req.DateFrom),
		DateTo:   optional(req.DateTo),
	}
	if req.UseFilter {
		p.FilterID = optional(string(req.FilterID))
	} else {
		p.JQL = optional(req.Query)
	}
	return p
}

// SpecialCharts holds the subset breakdowns shown next to the project charts.
type SpecialCharts struct {
	NoTransitions    analysis.CountBreakdown `json:"no_transitions"`
	OpenTasks        analysis.HoursBreakdown `json:"open_tasks"`
	ClosedNoComments analysis.CountBreakdown `json:"closed_no_comments"`
	CLM              analysis.CLMGroups      `json:"clm"`
}

// ChartData is the document the UI draws its charts from.
type ChartData struct {
	ProjectCounts    map[string]int     `json:"project_counts"`
	ProjectEstimates map[string]float64 `json:"project_estimates"`
	ProjectTimeSpent map[string]float64 `json:"project_time_spent"`
	Projects         []string           `json:"projects"`
	SpecialCharts    SpecialCharts      `json:"special_charts"`
	FilterParams     FilterParams       `json:"filter_params"`
}

// NewChartData assembles the chart data document of a run.
func NewChartData(agg analysis.ProjectAggregate, s analysis.Subsets, params FilterParams) ChartData {
	return ChartData{
		ProjectCounts:    agg.ProjectCounts,
		ProjectEstimates: agg.ProjectEstimates,
		ProjectTimeSpent: agg.ProjectTimeSpent,
		Projects:         agg.Projects,
		SpecialCharts: SpecialCharts{
			NoTransitions:    agg.NoTransitions,
			OpenTasks:        s.OpenTasks,
			ClosedNoComments: s.ClosedNoComments,
			CLM:              s.CLM,
		},
		FilterParams: params,
	}
}

// Index is the top-level description of a completed snapshot.
type Index struct {
	Timestamp   string            `json:"timestamp"`
	TotalIssues int               `json:"total_issues"`
	Charts      map[string]string `json:"charts"`
	Summary     map[string]any    `json:"summary"`
	DateFrom    *string           `json:"date_from"`
	DateTo      *string           `json:"date_to"`
	FilterID    *string           `json:"filter_id"`
	JQLQuery    *string           `json:"jql_query"`
}

// Contents is everything a run persists.
type Contents struct {
	Timestamp string
	Table     analysis.Table
	Raw       []json.RawMessage
	ChartData ChartData
	KeyIndex  analysis.KeyIndex
	Charts    map[string]string
	Params    FilterParams
}

// Prepare creates the skeleton of a snapshot directory. It is safe to call repeatedly.
func Prepare(dir string) error {
	for _, sub := range []string{"data", "metrics"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("snapshot: create %s: %w", sub, err)
		}
	}
	return nil
}

// Write persists a run into dir and returns the index it wrote.
func Write(dir string, c Contents) (*Index, error) {
	if err := Prepare(dir); err != nil {
		return nil, err
	}

	// 1. Structured rows
	if err := writeJSON(dir, rawDataFile, c.Table, "    "); err != nil {
		return nil, err
	}

	// 2. Aggregates, subsets and request echo
	if err := writeJSON(dir, chartDataFile, c.ChartData, "    "); err != nil {
		return nil, err
	}

	// 3. Issue keys behind every chart bar
	keys := c.KeyIndex
	if keys == nil {
		keys = analysis.KeyIndex{}
	}
	if err := writeJSON(dir, keyIndexFile, keys, "    "); err != nil {
		return nil, err
	}

	// 4. Index
	charts := c.Charts
	if charts == nil {
		charts = map[string]string{}
	}
	idx := &Index{
		Timestamp:   c.Timestamp,
		TotalIssues: len(c.Raw),
		Charts:      charts,
		Summary:     readSummary(dir, charts),
		DateFrom:    c.Params.DateFrom,
		DateTo:      c.Params.DateTo,
		FilterID:    c.Params.FilterID,
		JQLQuery:    c.Params.JQL,
	}
	if err := writeJSON(dir, indexFile, idx, "    "); err != nil {
		return nil, err
	}

	// 5. Verbatim issue records
	raw := c.Raw
	if raw == nil {
		raw = []json.RawMessage{}
	}
	if err := writeJSON(dir, rawIssuesFile, raw, "  "); err != nil {
		return nil, err
	}

	log.Info().Str("dir", dir).Int("issues", idx.TotalIssues).Msg("Snapshot written")
	return idx, nil
}

// readSummary loads the renderer's summary document. Failures leave the summary empty.
func readSummary(dir string, charts map[string]string) map[string]any {
	summary := map[string]any{}
	p, ok := charts[summaryKey]
	if !ok || p == "" {
		return summary
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		log.Warn().Err(err).Str("path", p).Msg("Failed to read chart summary")
		return summary
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn().Err(err).Str("path", p).Msg("Chart summary is not a JSON object")
		return summary
	}
	if parsed != nil {
		summary = parsed
	}
	return summary
}

// writeJSON encodes v into dir/name through a temporary file and an atomic rename.
func writeJSON(dir, name string, v any, indent string) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)

	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	return nil
}
