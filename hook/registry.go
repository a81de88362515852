package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/valuatech/taskq/job"
)

// Named entry types pair a hook implementation with the hook name
// captured at registration time. This avoids type-asserting back to
// Hook inside the emit methods.
type jobEnqueuedEntry struct {
	name string
	hook JobEnqueued
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event.
//
// Hook errors and panics are logged and swallowed: a misbehaving hook
// must never affect job scheduling.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	jobEnqueued  []jobEnqueuedEntry
	jobStarted   []jobStartedEntry
	jobCompleted []jobCompletedEntry
	jobFailed    []jobFailedEntry
	jobRetrying  []jobRetryingEntry
	jobCancelled []jobCancelledEntry
}

// NewRegistry creates an empty hook registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a hook and caches which lifecycle events it implements.
// Registration is not safe for concurrent use with emits; register all
// hooks before starting the queue.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)

	if hk, ok := h.(JobEnqueued); ok {
		r.jobEnqueued = append(r.jobEnqueued, jobEnqueuedEntry{name: h.Name(), hook: hk})
	}
	if hk, ok := h.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name: h.Name(), hook: hk})
	}
	if hk, ok := h.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name: h.Name(), hook: hk})
	}
	if hk, ok := h.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name: h.Name(), hook: hk})
	}
	if hk, ok := h.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name: h.Name(), hook: hk})
	}
	if hk, ok := h.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name: h.Name(), hook: hk})
	}
}

// Names returns the names of all registered hooks.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.hooks))
	for _, h := range r.hooks {
		names = append(names, h.Name())
	}
	return names
}

// call runs one hook invocation. Errors and panics both end as a
// warning log entry so user-supplied hook code cannot take down the
// scheduler.
func (r *Registry) call(event, name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("hook panicked",
				slog.String("event", event),
				slog.String("hook", name),
				slog.Any("panic", p),
			)
		}
	}()

	if err := fn(); err != nil {
		r.logger.Warn("hook error",
			slog.String("event", event),
			slog.String("hook", name),
			slog.String("error", err.Error()),
		)
	}
}

// EmitJobEnqueued notifies all JobEnqueued hooks.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobEnqueued {
		r.call("job_enqueued", e.name, func() error { return e.hook.OnJobEnqueued(ctx, j) })
	}
}

// EmitJobStarted notifies all JobStarted hooks.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		r.call("job_started", e.name, func() error { return e.hook.OnJobStarted(ctx, j) })
	}
}

// EmitJobCompleted notifies all JobCompleted hooks.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		r.call("job_completed", e.name, func() error { return e.hook.OnJobCompleted(ctx, j, elapsed) })
	}
}

// EmitJobFailed notifies all JobFailed hooks.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		r.call("job_failed", e.name, func() error { return e.hook.OnJobFailed(ctx, j, jobErr) })
	}
}

// EmitJobRetrying notifies all JobRetrying hooks.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, eligibleAt time.Time) {
	for _, e := range r.jobRetrying {
		r.call("job_retrying", e.name, func() error { return e.hook.OnJobRetrying(ctx, j, attempt, eligibleAt) })
	}
}

// EmitJobCancelled notifies all JobCancelled hooks.
func (r *Registry) EmitJobCancelled(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCancelled {
		r.call("job_cancelled", e.name, func() error { return e.hook.OnJobCancelled(ctx, j) })
	}
}
