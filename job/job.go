package job

import (
	"encoding/json"
	"time"

	"github.com/valuatech/taskq"
	"github.com/valuatech/taskq/id"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusPending means the job is eligible for dispatch.
	StatusPending Status = "pending"
	// StatusDelayed means the job is waiting out a delay or retry backoff.
	StatusDelayed Status = "delayed"
	// StatusProcessing means a processor is currently executing the job.
	StatusProcessing Status = "processing"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the job exhausted its attempts and will not run again
	// unless explicitly retried.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDelayed, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Job is one unit of asynchronous work together with its full lifecycle
// record. The queue core is the sole owner of every Job; read methods
// hand out copies, so a Job held by a caller is a snapshot.
type Job struct {
	taskq.Entity

	ID          id.ID           `json:"id"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Status      Status          `json:"status"`
	Priority    int             `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Delay       time.Duration   `json:"delay,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	Progress    int             `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FailedAt    *time.Time      `json:"failed_at,omitempty"`
}
