// Package audit bridges scheduler lifecycle events to an append-only
// audit trail.
//
// Every job lifecycle hook emits a structured [Event] through the
// [Recorder] interface. Severity follows the outcome: info for normal
// operations, warning for retries, error for terminal failures.
//
//	q.Hooks().Register(audit.New(audit.RecorderFunc(
//	    func(ctx context.Context, evt *audit.Event) error {
//	        return trail.Append(ctx, evt)
//	    },
//	)))
//
// Use [WithActions] to record only a subset of events:
//
//	audit.New(recorder, audit.WithActions(audit.ActionJobFailed))
package audit

import (
	"context"
	"time"

	"github.com/valuatech/taskq/hook"
	"github.com/valuatech/taskq/job"
)

// Actions, one per lifecycle hook.
const (
	ActionJobEnqueued  = "job.enqueued"
	ActionJobStarted   = "job.started"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
	ActionJobRetrying  = "job.retrying"
	ActionJobCancelled = "job.cancelled"
)

// Event severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is one audit trail entry.
type Event struct {
	Action   string         `json:"action"`
	Severity string         `json:"severity"`
	JobID    string         `json:"job_id"`
	JobType  string         `json:"job_type"`
	At       time.Time      `json:"at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Recorder receives audit events. Implementations must be safe for
// concurrent use; events for different jobs arrive from different
// goroutines.
type Recorder interface {
	Record(ctx context.Context, evt *Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, evt *Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, evt *Event) error { return f(ctx, evt) }

// Compile-time interface checks.
var (
	_ hook.Hook         = (*Trail)(nil)
	_ hook.JobEnqueued  = (*Trail)(nil)
	_ hook.JobStarted   = (*Trail)(nil)
	_ hook.JobCompleted = (*Trail)(nil)
	_ hook.JobFailed    = (*Trail)(nil)
	_ hook.JobRetrying  = (*Trail)(nil)
	_ hook.JobCancelled = (*Trail)(nil)
)

// Trail is a lifecycle hook that emits audit events.
type Trail struct {
	rec     Recorder
	actions map[string]bool // nil means all
}

// Option configures a Trail.
type Option func(*Trail)

// WithActions restricts the trail to the listed actions. Without this
// option every action is recorded.
func WithActions(actions ...string) Option {
	return func(t *Trail) {
		t.actions = make(map[string]bool, len(actions))
		for _, a := range actions {
			t.actions[a] = true
		}
	}
}

// New creates a Trail emitting to rec.
func New(rec Recorder, opts ...Option) *Trail {
	t := &Trail{rec: rec}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements hook.Hook.
func (t *Trail) Name() string { return "audit-trail" }

func (t *Trail) emit(ctx context.Context, action, severity string, j *job.Job, meta map[string]any) error {
	if t.actions != nil && !t.actions[action] {
		return nil
	}
	return t.rec.Record(ctx, &Event{
		Action:   action,
		Severity: severity,
		JobID:    j.ID.String(),
		JobType:  j.Type,
		At:       time.Now().UTC(),
		Metadata: meta,
	})
}

// OnJobEnqueued implements hook.JobEnqueued.
func (t *Trail) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return t.emit(ctx, ActionJobEnqueued, SeverityInfo, j, map[string]any{
		"priority": j.Priority,
		"delay":    j.Delay.String(),
	})
}

// OnJobStarted implements hook.JobStarted.
func (t *Trail) OnJobStarted(ctx context.Context, j *job.Job) error {
	return t.emit(ctx, ActionJobStarted, SeverityInfo, j, map[string]any{
		"attempt": j.Attempts,
	})
}

// OnJobCompleted implements hook.JobCompleted.
func (t *Trail) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return t.emit(ctx, ActionJobCompleted, SeverityInfo, j, map[string]any{
		"elapsed": elapsed.String(),
	})
}

// OnJobFailed implements hook.JobFailed.
func (t *Trail) OnJobFailed(ctx context.Context, j *job.Job, err error) error {
	return t.emit(ctx, ActionJobFailed, SeverityError, j, map[string]any{
		"error":    err.Error(),
		"attempts": j.Attempts,
	})
}

// OnJobRetrying implements hook.JobRetrying.
func (t *Trail) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, eligibleAt time.Time) error {
	return t.emit(ctx, ActionJobRetrying, SeverityWarning, j, map[string]any{
		"attempt":     attempt,
		"eligible_at": eligibleAt.UTC().Format(time.RFC3339Nano),
	})
}

// OnJobCancelled implements hook.JobCancelled.
func (t *Trail) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return t.emit(ctx, ActionJobCancelled, SeverityInfo, j, nil)
}
