package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jira-charts/internal/job"
	"jira-charts/internal/jql"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner executes one analysis run synchronously.
type Runner interface {
	Run(ctx context.Context, req jql.Request) (job.Status, error)
}

// Scheduler triggers recurring analysis runs from a five-field cron expression.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
}

// New registers a recurring run of req. An empty timezone means the local zone.
func New(spec, timezone string, runner Runner, req jql.Request) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", timezone, err)
		}
		loc = l
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
	)
	id, err := c.AddFunc(spec, func() { Tick(context.Background(), runner, req) })
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, id: id}, nil
}

// Tick performs one scheduled run. A run already in progress makes the tick a no-op.
func Tick(ctx context.Context, runner Runner, req jql.Request) {
	log.Info().Msg("cron: scheduled analysis")
	status, err := runner.Run(ctx, req)
	switch {
	case errors.Is(err, job.ErrAlreadyRunning):
		log.Info().Msg("cron: analysis already running, skipping tick")
	case err != nil:
		log.Error().Err(err).Msg("cron: analysis failed")
	default:
		log.Info().Str("status", status.StatusMessage).Int("issues", status.TotalIssues).Msg("cron: analysis finished")
	}
}

// Start begins firing runs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Time("next", s.Next()).Msg("cron: scheduler started")
}

// Next returns the time of the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.id).Next
}

// Stop halts scheduling and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
