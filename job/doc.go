// Package job defines the job record, its lifecycle states, per-job
// options, and the processor registry that maps a job type to the
// handler performing the actual work.
package job
