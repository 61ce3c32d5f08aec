package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jira-charts/internal/job"
	"jira-charts/internal/jql"
	"jira-charts/internal/logging"
	"jira-charts/internal/snapshot"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog/log"
)

const defaultLogLimit = 50

// LinkResponse is a ready-to-open Jira issue navigator link.
type LinkResponse struct {
	URL string `json:"url"`
	JQL string `json:"jql"`
}

func (s *Server) link(query jql.Node) LinkResponse {
	q := jql.String(query)
	return LinkResponse{URL: jql.BrowseURL(s.opts.JiraURL, q), JQL: q}
}

// StartAnalysis launches a run from a JSON or form body.
func (s *Server) StartAnalysis(c *gin.Context) {
	var req jql.Request
	if c.Request.ContentLength != 0 {
		if c.ContentType() == binding.MIMEPOSTForm {
			normalizeCheckbox(c.Request, "use_filter")
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis request"})
			return
		}
	}
	req = req.WithDefaultFilter(s.opts.DefaultFilterID)

	if err := s.pipeline.Start(req); err != nil {
		if errors.Is(err, job.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to start analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start analysis"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// normalizeCheckbox rewrites an HTML checkbox's "on" to "true" so bool form binding accepts it.
func normalizeCheckbox(r *http.Request, field string) {
	if err := r.ParseForm(); err != nil {
		return
	}
	for _, values := range []url.Values{r.Form, r.PostForm} {
		for i, v := range values[field] {
			if strings.EqualFold(v, "on") {
				values[field][i] = "true"
			}
		}
	}
}

// Status returns the current job status.
func (s *Server) Status(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Tracker().Snapshot())
}

// Logs returns the most recent log entries.
func (s *Server) Logs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries := []logging.Entry{}
	if s.logs != nil {
		entries = s.logs.Entries(limit)
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// ProjectJQL links to one project's issues, narrowed by an optional base query and worklog range.
func (s *Server) ProjectJQL(c *gin.Context) {
	query := jql.ProjectQuery(c.Query("base_jql"), c.Param("project"), c.Query("date_from"), c.Query("date_to"))
	c.JSON(http.StatusOK, s.link(query))
}

// IssuesJQL links to the issues behind one bar of a snapshot chart.
func (s *Server) IssuesJQL(c *gin.Context) {
	dir, err := snapshot.Dir(s.pipeline.Root(), c.Param("folder"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	idx, err := snapshot.ReadKeyIndex(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Issue key index unavailable")
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	keys := idx.Keys(c.Param("subset"), c.Param("group"))
	if len(keys) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no issues for this chart group"})
		return
	}
	c.JSON(http.StatusOK, s.link(jql.IssueKeys(keys)))
}

// CLMJQL links to every issue linked to a CLM issue.
func (s *Server) CLMJQL(c *gin.Context) {
	c.JSON(http.StatusOK, s.link(jql.LinkedIssues(c.Param("key"))))
}

// ListRuns lists the snapshots, newest first.
func (s *Server) ListRuns(c *gin.Context) {
	runs, err := snapshot.List(s.pipeline.Root())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns the index and chart data of one snapshot.
func (s *Server) GetRun(c *gin.Context) {
	dir, err := snapshot.Dir(s.pipeline.Root(), c.Param("folder"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	idx, err := snapshot.ReadIndex(dir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	chartData, err := snapshot.ReadChartData(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Chart data unavailable")
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": idx, "chart_data": chartData})
}
