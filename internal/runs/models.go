package runs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusRunning, StatusCompleted, StatusFailed}

// ValidStatus reports whether value names a known run status.
func ValidStatus(value Status) bool {
	for _, status := range allStatuses {
		if status == value {
			return true
		}
	}
	return false
}

// Run is one `softseg process` invocation for a subject.
type Run struct {
	ID            int64
	UUID          string
	Subject       string
	Status        Status
	Stage         string
	SCTVersion    string
	Host          string
	ErrorMessage  string
	ErrorCategory string
	StartedAt     time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Duration reports elapsed wall time; for in-flight runs it measures
// against now.
func (r *Run) Duration(now time.Time) time.Duration {
	end := now
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

// SetStage records the stage currently executing.
func (r *Run) SetStage(stage string) {
	r.Stage = strings.TrimSpace(stage)
}

// SetFailed marks the run failed with a message and category.
func (r *Run) SetFailed(message, category string) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.ErrorMessage = strings.TrimSpace(message)
	r.ErrorCategory = strings.TrimSpace(category)
	r.FinishedAt = &now
}

// SetCompleted marks the run finished successfully.
func (r *Run) SetCompleted() {
	now := time.Now().UTC()
	r.Status = StatusCompleted
	r.ErrorMessage = ""
	r.ErrorCategory = ""
	r.FinishedAt = &now
}
