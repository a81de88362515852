package queue

import (
	"log/slog"

	"github.com/valuatech/taskq/backoff"
	"github.com/valuatech/taskq/hook"
	"github.com/valuatech/taskq/job"
	"github.com/valuatech/taskq/middleware"
)

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the structured logger for the queue.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithRegistry sets the processor registry. If not set, the queue
// creates an empty one; register processors via Registry().
func WithRegistry(r *job.Registry) Option {
	return func(q *Queue) { q.registry = r }
}

// WithBackoff sets the retry backoff strategy.
// If not set, uncapped exponential doubling from Config.RetryDelay is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(q *Queue) { q.bo = b }
}

// WithMiddleware appends middleware to the execution chain. The default
// chain is Recover → Logging → Metrics; additional middleware run
// inside it, closest to the processor.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(q *Queue) { q.extraMW = append(q.extraMW, mws...) }
}

// WithHooks sets the lifecycle hook registry.
func WithHooks(r *hook.Registry) Option {
	return func(q *Queue) { q.hooks = r }
}

// WithLimits sets per-type rate and concurrency limits. Types without
// a limit are constrained only by the queue-wide concurrency cap.
func WithLimits(l *Limits) Option {
	return func(q *Queue) { q.limits = l }
}
