package job

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"jira-charts/internal/analysis"
	"jira-charts/internal/jql"
	"jira-charts/internal/snapshot"

	"github.com/rs/zerolog/log"
)

// Fetcher returns every issue record matching a query, verbatim.
type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]json.RawMessage, error)
}

// Renderer writes the chart artifacts of a run and returns their index.
type Renderer interface {
	Render(ctx context.Context, table analysis.Table, dir string) (map[string]string, error)
}

// Pipeline runs the analysis: fetch, transform, render, aggregate and persist.
type Pipeline struct {
	tracker    *Tracker
	fetcher    Fetcher
	renderer   Renderer
	root       string
	clmProject string
	now        func() time.Time
}

// NewPipeline creates a pipeline writing snapshots under root.
func NewPipeline(tracker *Tracker, fetcher Fetcher, renderer Renderer, root, clmProject string) *Pipeline {
	return &Pipeline{
		tracker:    tracker,
		fetcher:    fetcher,
		renderer:   renderer,
		root:       root,
		clmProject: clmProject,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for snapshot timestamps.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Tracker returns the status tracker the pipeline reports to.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// Root returns the directory snapshots are written under.
func (p *Pipeline) Root() string {
	return p.root
}

// Start launches a run in the background.
func (p *Pipeline) Start(req jql.Request) error {
	if !p.tracker.TryStart("Initializing analysis...") {
		return ErrAlreadyRunning
	}
	go func() {
		_ = p.execute(context.Background(), req)
	}()
	return nil
}

// Run executes a run synchronously and returns its final status.
func (p *Pipeline) Run(ctx context.Context, req jql.Request) (Status, error) {
	if !p.tracker.TryStart("Initializing analysis...") {
		return p.tracker.Snapshot(), ErrAlreadyRunning
	}
	err := p.execute(ctx, req)
	return p.tracker.Snapshot(), err
}

func (p *Pipeline) execute(ctx context.Context, req jql.Request) (err error) {
	defer p.tracker.Finish()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		if err != nil {
			log.Error().Err(err).Msg("Analysis failed")
			p.tracker.SetMessage(fmt.Sprintf("An error occurred: %v", err))
		}
	}()

	// 1. Snapshot skeleton
	timestamp := p.now().Format(snapshot.TimestampLayout)
	dir := filepath.Join(p.root, timestamp)
	if err := snapshot.Prepare(dir); err != nil {
		return err
	}
	p.tracker.SetFolder(timestamp)

	// 2. Query
	query := req.Build()
	p.tracker.Update(10, "Using query: "+query)
	log.Info().Str("jql", query).Str("folder", timestamp).Msg("Analysis started")

	// 3. Fetch
	p.tracker.SetMessage("Fetching issues from Jira...")
	raw, err := p.fetcher.Fetch(ctx, query)
	if err != nil {
		return err
	}
	p.tracker.SetTotal(len(raw))
	p.tracker.Update(30, fmt.Sprintf("Found %d issues.", len(raw)))
	if len(raw) == 0 {
		log.Warn().Str("jql", query).Msg("Query returned no issues")
		p.tracker.SetMessage("No issues found. Check query or credentials.")
		return nil
	}

	// 4. Transform
	p.tracker.Update(50, "Processing issue data...")
	table := analysis.BuildTable(raw)

	// 5. Render
	p.tracker.Update(70, "Creating visualizations...")
	charts, err := p.renderer.Render(ctx, table, dir)
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}

	// 6. Chart data; failures here degrade to empty values
	p.tracker.Update(80, "Creating interactive charts...")
	agg, err := analysis.Aggregate(table)
	if err != nil {
		log.Error().Err(err).Msg("Aggregation failed, using empty aggregate")
	}
	subsets, err := analysis.DeriveSubsets(table, p.clmProject)
	if err != nil {
		log.Error().Err(err).Msg("Subset derivation failed, using empty subsets")
	}
	params := snapshot.ParamsFrom(req)

	// 7. Persist
	if _, err := snapshot.Write(dir, snapshot.Contents{
		Timestamp: timestamp,
		Table:     table,
		Raw:       raw,
		ChartData: snapshot.NewChartData(agg, subsets, params),
		KeyIndex:  analysis.BuildKeyIndex(table, p.clmProject),
		Charts:    charts,
		Params:    params,
	}); err != nil {
		return err
	}

	// 8. Done
	p.tracker.Complete(fmt.Sprintf("Analysis complete. Charts saved to %s.", dir), timestamp)
	log.Info().Str("dir", dir).Int("issues", len(raw)).Msg("Analysis complete")
	return nil
}
