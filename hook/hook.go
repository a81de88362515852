// Package hook defines the lifecycle hook system for the scheduler.
// Hooks are notified of job lifecycle events (enqueued, started,
// completed, failed, retrying, cancelled) and can react to them, for
// example with logging, metrics, or an audit trail.
//
// Each lifecycle event is a separate interface so hooks opt in only to
// the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/valuatech/taskq/job"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when the dispatch loop begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally (attempts exhausted).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobRetrying is called when a job fails but is scheduled for a
// backoff retry.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, eligibleAt time.Time) error
}

// JobCancelled is called when a pending or delayed job is removed via
// Cancel.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}
