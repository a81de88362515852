package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/valuatech/taskq"
	"github.com/valuatech/taskq/id"
	"github.com/valuatech/taskq/job"
	"github.com/valuatech/taskq/queue"
	"github.com/valuatech/taskq/workflow"
)

// MaxBatchSize is the largest number of jobs accepted by one
// EnqueueBatch call.
const MaxBatchSize = 50

// Engine is the application façade over a single queue core.
type Engine struct {
	q        *queue.Queue
	orch     *workflow.Orchestrator
	validate *validator.Validate
	logger   *slog.Logger
	depFloor time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDependencyFloor overrides the workflow orchestrator's minimum
// delay for steps with an unmet dependency.
func WithDependencyFloor(d time.Duration) Option {
	return func(e *Engine) {
		e.depFloor = d
	}
}

// New creates an Engine over q.
func New(q *queue.Queue, opts ...Option) *Engine {
	e := &Engine{
		q:        q,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// The orchestrator is built once, after options, so it sees the
	// final logger and floor regardless of option order.
	wopts := []workflow.Option{workflow.WithLogger(e.logger)}
	if e.depFloor > 0 {
		wopts = append(wopts, workflow.WithDependencyFloor(e.depFloor))
	}
	e.orch = workflow.New(q, wopts...)
	return e
}

// Queue exposes the underlying queue core for registration and
// inspection.
func (e *Engine) Queue() *queue.Queue { return e.q }

// Start starts the queue's dispatch loop.
func (e *Engine) Start(ctx context.Context) error { return e.q.Start(ctx) }

// Shutdown drains the queue. See queue.Queue.Shutdown.
func (e *Engine) Shutdown(ctx context.Context) error { return e.q.Shutdown(ctx) }

// Stats returns a snapshot of the queue's counters.
func (e *Engine) Stats() queue.Stats { return e.q.Stats() }

// enqueue validates the payload, marshals it, and adds the job.
func (e *Engine) enqueue(ctx context.Context, typ string, payload any, opts ...job.Option) (id.ID, error) {
	if err := e.validate.Struct(payload); err != nil {
		return id.Nil, fmt.Errorf("engine: invalid %s payload: %w", typ, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return id.Nil, fmt.Errorf("engine: marshal %s payload: %w", typ, err)
	}
	return e.q.Add(ctx, typ, data, opts...)
}

// EnqueueValuation queues a valuation calculation. Valuations run at
// the highest default priority.
func (e *Engine) EnqueueValuation(ctx context.Context, p ValuationPayload) (id.ID, error) {
	return e.enqueue(ctx, TypeValuation, p,
		job.WithPriority(valuationPriority),
		job.WithMaxAttempts(valuationMaxAttempts),
	)
}

// EnqueueReport queues report generation for a finished valuation.
func (e *Engine) EnqueueReport(ctx context.Context, p ReportPayload) (id.ID, error) {
	return e.enqueue(ctx, TypeReport, p,
		job.WithPriority(reportPriority),
		job.WithMaxAttempts(reportMaxAttempts),
	)
}

// EnqueueExport queues a data export at background priority.
func (e *Engine) EnqueueExport(ctx context.Context, p ExportPayload) (id.ID, error) {
	return e.enqueue(ctx, TypeExport, p,
		job.WithPriority(exportPriority),
		job.WithMaxAttempts(exportMaxAttempts),
	)
}

// EnqueueNotification queues an email notification, optionally delayed
// by p.SendAfter.
func (e *Engine) EnqueueNotification(ctx context.Context, p NotificationPayload) (id.ID, error) {
	opts := []job.Option{
		job.WithPriority(notificationPriority),
		job.WithMaxAttempts(notificationMaxAttempts),
	}
	if p.SendAfter > 0 {
		opts = append(opts, job.WithDelay(p.SendAfter))
	}
	return e.enqueue(ctx, TypeNotification, p, opts...)
}

// JobRequest is one entry of a batch submission.
type JobRequest struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`

	Priority    int           `json:"priority,omitempty"`
	Delay       time.Duration `json:"delay,omitempty"`
	MaxAttempts int           `json:"max_attempts,omitempty" validate:"omitempty,min=1"`
}

// EnqueueBatch adds up to MaxBatchSize independent jobs in request
// order. Requests already enqueued before a failing one stay enqueued;
// the returned slice covers exactly the successful prefix.
func (e *Engine) EnqueueBatch(ctx context.Context, reqs []JobRequest) ([]id.ID, error) {
	if len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("engine: %d jobs in one batch: %w", len(reqs), taskq.ErrBatchTooLarge)
	}

	jobIDs := make([]id.ID, 0, len(reqs))
	for i, req := range reqs {
		if err := e.validate.Struct(req); err != nil {
			return jobIDs, fmt.Errorf("engine: invalid batch entry %d: %w", i, err)
		}
		opts := []job.Option{
			job.WithPriority(req.Priority),
			job.WithDelay(req.Delay),
		}
		if req.MaxAttempts > 0 {
			opts = append(opts, job.WithMaxAttempts(req.MaxAttempts))
		}
		jobID, err := e.q.Add(ctx, req.Type, req.Data, opts...)
		if err != nil {
			return jobIDs, fmt.Errorf("engine: batch entry %d (%s): %w", i, req.Type, err)
		}
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs, nil
}

// ProcessWorkflow enqueues a workflow's steps in order. See
// workflow.Orchestrator.Process.
func (e *Engine) ProcessWorkflow(ctx context.Context, steps []workflow.Step) (workflow.Result, error) {
	return e.orch.Process(ctx, steps)
}
