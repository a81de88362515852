package job

import (
	"time"

	"github.com/valuatech/taskq/id"
)

// Options configures per-job behavior. Zero values defer to the queue
// core's configured defaults.
type Options struct {
	// Priority determines dispatch ordering. Higher values run first.
	Priority int

	// Delay postpones eligibility: the job starts out delayed and flips
	// to pending once the delay elapses.
	Delay time.Duration

	// MaxAttempts is the attempt budget before the job fails
	// terminally. Zero means the queue default.
	MaxAttempts int

	// Timeout overrides the queue's default processor deadline for
	// this job. Zero means the queue default.
	Timeout time.Duration

	// JobID overrides the generated identifier. Nil means generate.
	JobID id.ID
}

// Option is a functional option applied at enqueue time.
type Option func(*Options)

// WithPriority sets the job priority. Higher values are dispatched first.
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// WithDelay postpones the job's eligibility by d.
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}

// WithMaxAttempts sets the attempt budget for the job.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithTimeout sets the processor deadline for this job.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithJobID supplies an explicit job identifier instead of a generated one.
func WithJobID(jobID id.ID) Option {
	return func(o *Options) { o.JobID = jobID }
}
