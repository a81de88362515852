package hook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/valuatech/taskq/hook"
	"github.com/valuatech/taskq/id"
	"github.com/valuatech/taskq/job"
)

// recordingHook implements every job lifecycle event and counts calls.
type recordingHook struct {
	enqueued, started, completed, failed, retrying, cancelled int
	err                                                       error
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) OnJobEnqueued(context.Context, *job.Job) error {
	h.enqueued++
	return h.err
}

func (h *recordingHook) OnJobStarted(context.Context, *job.Job) error {
	h.started++
	return h.err
}

func (h *recordingHook) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	h.completed++
	return h.err
}

func (h *recordingHook) OnJobFailed(context.Context, *job.Job, error) error {
	h.failed++
	return h.err
}

func (h *recordingHook) OnJobRetrying(context.Context, *job.Job, int, time.Time) error {
	h.retrying++
	return h.err
}

func (h *recordingHook) OnJobCancelled(context.Context, *job.Job) error {
	h.cancelled++
	return h.err
}

// enqueueOnlyHook opts in to a single event.
type enqueueOnlyHook struct {
	enqueued int
}

func (h *enqueueOnlyHook) Name() string { return "enqueue-only" }

func (h *enqueueOnlyHook) OnJobEnqueued(context.Context, *job.Job) error {
	h.enqueued++
	return nil
}

func testRegistry() *hook.Registry {
	return hook.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_EmitsToRegisteredHooks(t *testing.T) {
	reg := testRegistry()
	h := &recordingHook{}
	reg.Register(h)

	ctx := context.Background()
	j := &job.Job{ID: id.NewJobID(), Type: "valuation.calculate"}

	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobStarted(ctx, j)
	reg.EmitJobCompleted(ctx, j, time.Second)
	reg.EmitJobFailed(ctx, j, errors.New("boom"))
	reg.EmitJobRetrying(ctx, j, 1, time.Now())
	reg.EmitJobCancelled(ctx, j)

	if h.enqueued != 1 || h.started != 1 || h.completed != 1 || h.failed != 1 || h.retrying != 1 || h.cancelled != 1 {
		t.Errorf("hook call counts = %+v, want one of each", *h)
	}
}

func TestRegistry_PartialHookOnlySeesItsEvents(t *testing.T) {
	reg := testRegistry()
	h := &enqueueOnlyHook{}
	reg.Register(h)

	ctx := context.Background()
	j := &job.Job{ID: id.NewJobID(), Type: "report.generate"}

	reg.EmitJobEnqueued(ctx, j)
	reg.EmitJobStarted(ctx, j) // no JobStarted implementation; must not panic
	reg.EmitJobCompleted(ctx, j, time.Second)

	if h.enqueued != 1 {
		t.Errorf("enqueued count = %d, want 1", h.enqueued)
	}
}

func TestRegistry_HookErrorsAreSwallowed(t *testing.T) {
	reg := testRegistry()
	failing := &recordingHook{err: errors.New("hook exploded")}
	after := &recordingHook{}
	reg.Register(failing)
	reg.Register(after)

	reg.EmitJobEnqueued(context.Background(), &job.Job{ID: id.NewJobID()})

	// The failing hook must not prevent later hooks from running.
	if after.enqueued != 1 {
		t.Errorf("second hook enqueued count = %d, want 1", after.enqueued)
	}
}

type panickingHook struct{}

func (h *panickingHook) Name() string { return "panicking" }

func (h *panickingHook) OnJobStarted(context.Context, *job.Job) error {
	panic("alerting pipeline offline")
}

func TestRegistry_HookPanicsAreSwallowed(t *testing.T) {
	reg := testRegistry()
	after := &recordingHook{}
	reg.Register(&panickingHook{})
	reg.Register(after)

	// The panic must neither escape the emit nor starve later hooks.
	reg.EmitJobStarted(context.Background(), &job.Job{ID: id.NewJobID()})

	if after.started != 1 {
		t.Errorf("second hook started count = %d, want 1", after.started)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := testRegistry()
	reg.Register(&recordingHook{})
	reg.Register(&enqueueOnlyHook{})

	names := reg.Names()
	if len(names) != 2 || names[0] != "recording" || names[1] != "enqueue-only" {
		t.Errorf("Names() = %v", names)
	}
}
