package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/valuatech/taskq/hook"
	"github.com/valuatech/taskq/job"
)

const meterName = "github.com/valuatech/taskq/observability"

// Compile-time interface checks.
var (
	_ hook.Hook         = (*MetricsHook)(nil)
	_ hook.JobEnqueued  = (*MetricsHook)(nil)
	_ hook.JobCompleted = (*MetricsHook)(nil)
	_ hook.JobFailed    = (*MetricsHook)(nil)
	_ hook.JobRetrying  = (*MetricsHook)(nil)
	_ hook.JobCancelled = (*MetricsHook)(nil)
)

// MetricsHook counts job lifecycle events. Every counter carries a
// job_type attribute.
type MetricsHook struct {
	enqueued  metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	retried   metric.Int64Counter
	cancelled metric.Int64Counter
}

// NewMetricsHook creates a MetricsHook on the global meter provider.
func NewMetricsHook() (*MetricsHook, error) {
	return NewMetricsHookWithMeter(otel.Meter(meterName))
}

// NewMetricsHookWithMeter creates a MetricsHook on the given meter.
func NewMetricsHookWithMeter(meter metric.Meter) (*MetricsHook, error) {
	h := &MetricsHook{}
	var err error
	if h.enqueued, err = meter.Int64Counter("taskq.job.enqueued",
		metric.WithDescription("Jobs accepted into the queue")); err != nil {
		return nil, err
	}
	if h.completed, err = meter.Int64Counter("taskq.job.completed",
		metric.WithDescription("Jobs that finished successfully")); err != nil {
		return nil, err
	}
	if h.failed, err = meter.Int64Counter("taskq.job.failed",
		metric.WithDescription("Jobs that failed terminally")); err != nil {
		return nil, err
	}
	if h.retried, err = meter.Int64Counter("taskq.job.retried",
		metric.WithDescription("Failed executions scheduled for a backoff retry")); err != nil {
		return nil, err
	}
	if h.cancelled, err = meter.Int64Counter("taskq.job.cancelled",
		metric.WithDescription("Jobs removed before execution")); err != nil {
		return nil, err
	}
	return h, nil
}

// Name implements hook.Hook.
func (h *MetricsHook) Name() string { return "observability-metrics" }

func typeAttr(j *job.Job) metric.AddOption {
	return metric.WithAttributes(attribute.String("job_type", j.Type))
}

// OnJobEnqueued implements hook.JobEnqueued.
func (h *MetricsHook) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	h.enqueued.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCompleted implements hook.JobCompleted.
func (h *MetricsHook) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	h.completed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobFailed implements hook.JobFailed.
func (h *MetricsHook) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	h.failed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobRetrying implements hook.JobRetrying.
func (h *MetricsHook) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	h.retried.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCancelled implements hook.JobCancelled.
func (h *MetricsHook) OnJobCancelled(ctx context.Context, j *job.Job) error {
	h.cancelled.Add(ctx, 1, typeAttr(j))
	return nil
}
