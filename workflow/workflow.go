package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valuatech/taskq/id"
	"github.com/valuatech/taskq/job"
)

// DefaultDependencyFloor is the minimum delay applied to a step whose
// dependency has not completed by orchestration time.
const DefaultDependencyFloor = 30 * time.Second

// Step is one unit of a workflow.
type Step struct {
	// Type names the processor that will handle the step.
	Type string `json:"type"`

	// Data is the step's own payload, carried inside the envelope.
	Data json.RawMessage `json:"data,omitempty"`

	// DependsOn optionally names a job this step should run after.
	// The dependency is temporal: if the named job is not completed
	// when the workflow is processed, the step is delayed by at
	// least the dependency floor. An unknown ID counts as not
	// completed.
	DependsOn id.ID `json:"depends_on,omitempty"`

	// Delay is the step's explicit enqueue delay.
	Delay time.Duration `json:"delay,omitempty"`

	// Priority and MaxAttempts are passed through to the queue;
	// zero values fall back to the queue's defaults.
	Priority    int `json:"priority,omitempty"`
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// Envelope is the payload shape every workflow step is enqueued with.
// Processors handling workflow-originated jobs unmarshal into it to
// recover the inner Data.
type Envelope struct {
	WorkflowID id.ID           `json:"workflow_id"`
	DependsOn  id.ID           `json:"depends_on,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Result reports the outcome of processing a workflow.
type Result struct {
	WorkflowID id.ID   `json:"workflow_id"`
	JobIDs     []id.ID `json:"job_ids"`
}

// Enqueuer is the slice of the queue core the orchestrator needs.
type Enqueuer interface {
	Add(ctx context.Context, typ string, data []byte, opts ...job.Option) (id.ID, error)
	Get(jobID id.ID) (*job.Job, error)
}

// Orchestrator enqueues workflow steps in order with soft temporal
// dependencies.
type Orchestrator struct {
	q      Enqueuer
	floor  time.Duration
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDependencyFloor overrides the minimum delay for steps with an
// unmet dependency.
func WithDependencyFloor(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.floor = d
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator backed by q.
func New(q Enqueuer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		q:      q,
		floor:  DefaultDependencyFloor,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process enqueues steps in array order under a fresh workflow ID and
// returns the workflow ID with the job IDs in step order.
//
// Steps enqueued before an error occurred stay enqueued; the error
// reports the index of the step that failed.
func (o *Orchestrator) Process(ctx context.Context, steps []Step) (Result, error) {
	res := Result{WorkflowID: id.NewWorkflowID()}
	if len(steps) == 0 {
		return res, nil
	}

	res.JobIDs = make([]id.ID, 0, len(steps))
	for i, step := range steps {
		payload, err := json.Marshal(Envelope{
			WorkflowID: res.WorkflowID,
			DependsOn:  step.DependsOn,
			Data:       step.Data,
		})
		if err != nil {
			return res, fmt.Errorf("workflow %s: marshal step %d: %w", res.WorkflowID, i, err)
		}

		delay := o.effectiveDelay(step)
		opts := []job.Option{job.WithDelay(delay)}
		if step.Priority != 0 {
			opts = append(opts, job.WithPriority(step.Priority))
		}
		if step.MaxAttempts > 0 {
			opts = append(opts, job.WithMaxAttempts(step.MaxAttempts))
		}

		jobID, err := o.q.Add(ctx, step.Type, payload, opts...)
		if err != nil {
			return res, fmt.Errorf("workflow %s: enqueue step %d (%s): %w", res.WorkflowID, i, step.Type, err)
		}
		res.JobIDs = append(res.JobIDs, jobID)

		o.logger.Debug("workflow step enqueued",
			"workflow_id", res.WorkflowID.String(),
			"job_id", jobID.String(),
			"job_type", step.Type,
			"delay", delay,
		)
	}

	o.logger.Info("workflow enqueued",
		"workflow_id", res.WorkflowID.String(),
		"steps", len(steps),
	)
	return res, nil
}

// effectiveDelay applies the dependency floor when the step's
// dependency is absent or not yet completed.
func (o *Orchestrator) effectiveDelay(step Step) time.Duration {
	if step.DependsOn.IsNil() {
		return step.Delay
	}
	dep, err := o.q.Get(step.DependsOn)
	if err == nil && dep.Status == job.StatusCompleted {
		return step.Delay
	}
	return max(step.Delay, o.floor)
}
