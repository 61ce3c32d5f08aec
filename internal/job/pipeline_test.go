package job

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"jira-charts/internal/analysis"
	"jira-charts/internal/jql"
	"jira-charts/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	records []json.RawMessage
	err     error
	gotJQL  string
	block   chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, query string) ([]json.RawMessage, error) {
	f.gotJQL = query
	if f.block != nil {
		<-f.block
	}
	return f.records, f.err
}

type fakeRenderer struct {
	err   error
	calls int
}

func (r *fakeRenderer) Render(ctx context.Context, table analysis.Table, dir string) (map[string]string, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	path := filepath.Join(dir, "metrics", "summary.json")
	if err := os.WriteFile(path, []byte(`{"total_issues":2}`), 0644); err != nil {
		return nil, err
	}
	return map[string]string{"summary": "metrics/summary.json"}, nil
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

func records() []json.RawMessage {
	return []json.RawMessage{
		json.RawMessage(`{"key":"ABC-1","fields":{"project":{"key":"ABC"},"timespent":3600}}`),
		json.RawMessage(`{"key":"XYZ-1","fields":{"project":{"key":"XYZ"},"timeoriginalestimate":7200}}`),
	}
}

func TestPipeline_Success(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{records: records()}
	p := NewPipeline(NewTracker(), fetcher, &fakeRenderer{}, root, "CLM").WithClock(fixedNow)

	status, err := p.Run(context.Background(), jql.Request{UseFilter: true, FilterID: "5", DateFrom: "2024-01-01", DateTo: "2024-01-31"})
	require.NoError(t, err)

	assert.Equal(t, `(filter=5) AND (worklogDate >= "2024-01-01" AND worklogDate <= "2024-01-31")`, fetcher.gotJQL)
	assert.False(t, status.IsRunning)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, 2, status.TotalIssues)
	require.NotNil(t, status.CurrentFolder)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "20240305_140709", *status.CurrentFolder)
	assert.Equal(t, "20240305_140709", *status.LastRun)

	dir := filepath.Join(root, "20240305_140709")
	assert.Equal(t, "Analysis complete. Charts saved to "+dir+".", status.StatusMessage)

	idx, err := snapshot.ReadIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.TotalIssues)
	assert.Equal(t, float64(2), idx.Summary["total_issues"])

	cd, err := snapshot.ReadChartData(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "XYZ"}, cd.Projects)
	require.NotNil(t, cd.FilterParams.FilterID)
	assert.Nil(t, cd.FilterParams.JQL)
}

func TestPipeline_AllRecordsMalformed(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{records: []json.RawMessage{json.RawMessage(`"not-an-object"`), json.RawMessage(`[1,2]`)}}
	p := NewPipeline(NewTracker(), fetcher, &fakeRenderer{}, root, "CLM").WithClock(fixedNow)

	status, err := p.Run(context.Background(), jql.Request{Query: "project = ABC"})
	require.NoError(t, err)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, 2, status.TotalIssues)

	data, err := os.ReadFile(filepath.Join(root, "20240305_140709", "data", "chart_data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"projects": []`)

	var cd map[string]any
	require.NoError(t, json.Unmarshal(data, &cd))
	assert.Equal(t, []any{}, cd["projects"])
	assert.Equal(t, map[string]any{}, cd["project_counts"])
}

func TestPipeline_NoData(t *testing.T) {
	root := t.TempDir()
	renderer := &fakeRenderer{}
	p := NewPipeline(NewTracker(), &fakeFetcher{}, renderer, root, "").WithClock(fixedNow)

	status, err := p.Run(context.Background(), jql.Request{Query: "project = NONE"})
	require.NoError(t, err)

	assert.False(t, status.IsRunning)
	assert.Equal(t, "No issues found. Check query or credentials.", status.StatusMessage)
	assert.Equal(t, 30, status.Progress)
	assert.Nil(t, status.LastRun)
	assert.Zero(t, renderer.calls)
	assert.NoFileExists(t, filepath.Join(root, "20240305_140709", "index.json"))
}

func TestPipeline_FetchError(t *testing.T) {
	p := NewPipeline(NewTracker(), &fakeFetcher{err: errors.New("authentication failed")}, &fakeRenderer{}, t.TempDir(), "").WithClock(fixedNow)

	status, err := p.Run(context.Background(), jql.Request{Query: "project = ABC"})
	require.Error(t, err)

	assert.False(t, status.IsRunning)
	assert.Equal(t, 10, status.Progress, "progress freezes where the failure happened")
	assert.True(t, strings.HasPrefix(status.StatusMessage, "An error occurred: "))
	assert.Contains(t, status.StatusMessage, "authentication failed")
	assert.Nil(t, status.LastRun)
}

func TestPipeline_RenderError(t *testing.T) {
	p := NewPipeline(NewTracker(), &fakeFetcher{records: records()}, &fakeRenderer{err: errors.New("disk full")}, t.TempDir(), "").WithClock(fixedNow)

	status, err := p.Run(context.Background(), jql.Request{})
	require.Error(t, err)
	assert.Equal(t, 70, status.Progress)
	assert.Contains(t, status.StatusMessage, "disk full")
}

func TestPipeline_StartRejectsConcurrentRun(t *testing.T) {
	fetcher := &fakeFetcher{records: records(), block: make(chan struct{})}
	tracker := NewTracker()
	p := NewPipeline(tracker, fetcher, &fakeRenderer{}, t.TempDir(), "").WithClock(fixedNow)

	require.NoError(t, p.Start(jql.Request{Query: "project = ABC"}))
	assert.ErrorIs(t, p.Start(jql.Request{Query: "project = ABC"}), ErrAlreadyRunning)

	_, err := p.Run(context.Background(), jql.Request{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(fetcher.block)
	require.Eventually(t, func() bool {
		return !tracker.IsRunning()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 100, tracker.Snapshot().Progress)
	require.NoError(t, p.Start(jql.Request{Query: "project = ABC"}), "a finished run releases the job")
	require.Eventually(t, func() bool {
		return !tracker.IsRunning()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTracker_ProgressIsMonotonic(t *testing.T) {
	tr := NewTracker()
	require.True(t, tr.TryStart("start"))
	assert.False(t, tr.TryStart("again"))

	tr.Update(50, "half")
	tr.Update(30, "stale")
	s := tr.Snapshot()
	assert.Equal(t, 50, s.Progress)
	assert.Equal(t, "stale", s.StatusMessage)

	tr.Finish()
	require.True(t, tr.TryStart("next run"))
	assert.Equal(t, 0, tr.Snapshot().Progress)
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	require.True(t, tr.TryStart("start"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for j := 0; j < 200; j++ {
				s := tr.Snapshot()
				if s.Progress < prev {
					t.Errorf("progress went backwards: %d -> %d", prev, s.Progress)
					return
				}
				prev = s.Progress
			}
		}()
	}
	for _, p := range []int{10, 30, 50, 70, 80} {
		tr.Update(p, "step")
		tr.SetFolder("20240101_000000")
	}
	tr.Complete("done", "20240101_000000")
	wg.Wait()

	s := tr.Snapshot()
	*s.LastRun = "mutated"
	assert.Equal(t, "20240101_000000", *tr.Snapshot().LastRun, "snapshots are copies")
}
