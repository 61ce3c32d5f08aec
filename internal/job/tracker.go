package job

import (
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned when a run is requested while another one is active.
var ErrAlreadyRunning = errors.New("analysis is already running")

// Status is the externally visible state of the analysis job.
type Status struct {
	IsRunning     bool    `json:"is_running"`
	Progress      int     `json:"progress"`
	StatusMessage string  `json:"status_message"`
	TotalIssues   int     `json:"total_issues"`
	CurrentFolder *string `json:"current_folder"`
	LastRun       *string `json:"last_run"`
}

// Tracker owns the job status. Only the pipeline writes to it; pollers read copies.
type Tracker struct {
	mu     sync.Mutex
	status Status
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// TryStart atomically claims the job. It returns false when a run is already active.
func (t *Tracker) TryStart(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsRunning {
		return false
	}
	t.status.IsRunning = true
	t.status.Progress = 0
	t.status.StatusMessage = message
	t.status.TotalIssues = 0
	t.status.CurrentFolder = nil
	return true
}

// Update sets the progress and message. Progress never moves backwards within a run.
func (t *Tracker) Update(progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if progress > t.status.Progress {
		t.status.Progress = min(progress, 100)
	}
	t.status.StatusMessage = message
}

// SetMessage replaces the status message and leaves progress untouched.
func (t *Tracker) SetMessage(message string) {
	t.mu.Lock()
	t.status.StatusMessage = message
	t.mu.Unlock()
}

// SetFolder records the snapshot folder of the active run.
func (t *Tracker) SetFolder(folder string) {
	t.mu.Lock()
	t.status.CurrentFolder = &folder
	t.mu.Unlock()
}

// SetTotal records the number of fetched issues.
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	t.status.TotalIssues = n
	t.mu.Unlock()
}

// Complete marks the run as finished successfully.
func (t *Tracker) Complete(message, lastRun string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Progress = 100
	t.status.StatusMessage = message
	t.status.LastRun = &lastRun
}

// Finish releases the job. It is called exactly once per started run.
func (t *Tracker) Finish() {
	t.mu.Lock()
	t.status.IsRunning = false
	t.mu.Unlock()
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.status
	if s.CurrentFolder != nil {
		f := *s.CurrentFolder
		s.CurrentFolder = &f
	}
	if s.LastRun != nil {
		l := *s.LastRun
		s.LastRun = &l
	}
	return s
}

// IsRunning reports whether a run is active.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.IsRunning
}
