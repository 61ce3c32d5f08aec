package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"jira-charts/internal/job"
	"jira-charts/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Options configures the HTTP API.
type Options struct {
	JiraURL         string
	DefaultFilterID string
	Debug           bool
}

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	pipeline *job.Pipeline
	logs     *logging.Buffer
	opts     Options
}

// New creates a Server for pipeline. logs may be nil, in which case /logs is always empty.
func New(pipeline *job.Pipeline, logs *logging.Buffer, opts Options) *Server {
	return &Server{pipeline: pipeline, logs: logs, opts: opts}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	if !s.opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http")
	})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	r.POST("/analysis", s.StartAnalysis)
	r.GET("/status", s.Status)
	r.GET("/logs", s.Logs)

	r.GET("/jql/project/:project", s.ProjectJQL)
	r.GET("/jql/issues/:folder/:subset/:group", s.IssuesJQL)
	r.GET("/jql/clm/:key", s.CLMJQL)

	r.GET("/runs", s.ListRuns)
	r.GET("/runs/:folder", s.GetRun)
	r.Static("/snapshots", s.pipeline.Root())

	return r
}

// Run serves the API on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
