package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/valuatech/taskq"
	"github.com/valuatech/taskq/engine"
	"github.com/valuatech/taskq/id"
	"github.com/valuatech/taskq/job"
	"github.com/valuatech/taskq/queue"
	"github.com/valuatech/taskq/workflow"
)

func newTestEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	cfg := taskq.DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.New(cfg, queue.WithLogger(logger))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = q.Shutdown(ctx)
	})
	return engine.New(q, append([]engine.Option{engine.WithLogger(logger)}, opts...)...)
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(d)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func TestEnqueueValuation_DefaultsAndPayload(t *testing.T) {
	e := newTestEngine(t)

	jobID, err := e.EnqueueValuation(context.Background(), engine.ValuationPayload{
		CompanyID: "cmp_123",
		Method:    "dcf",
		AsOf:      "2026-06-30",
	})
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	j, err := e.Queue().Get(jobID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if j.Type != engine.TypeValuation {
		t.Errorf("type = %s, want %s", j.Type, engine.TypeValuation)
	}
	if j.Priority != 10 || j.MaxAttempts != 3 {
		t.Errorf("defaults not applied: priority=%d maxAttempts=%d", j.Priority, j.MaxAttempts)
	}

	var p engine.ValuationPayload
	if err := json.Unmarshal(j.Data, &p); err != nil {
		t.Fatalf("payload did not round-trip: %v", err)
	}
	if p.CompanyID != "cmp_123" || p.Method != "dcf" {
		t.Errorf("payload = %+v", p)
	}
}

func TestEnqueue_ValidationRejections(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"valuation without company", func() error {
			_, err := e.EnqueueValuation(ctx, engine.ValuationPayload{Method: "dcf"})
			return err
		}},
		{"valuation with unknown method", func() error {
			_, err := e.EnqueueValuation(ctx, engine.ValuationPayload{CompanyID: "c", Method: "astrology"})
			return err
		}},
		{"report with bad format", func() error {
			_, err := e.EnqueueReport(ctx, engine.ReportPayload{ValuationID: "v", Format: "gif"})
			return err
		}},
		{"export without entity", func() error {
			_, err := e.EnqueueExport(ctx, engine.ExportPayload{Format: "csv"})
			return err
		}},
		{"notification with bad address", func() error {
			_, err := e.EnqueueNotification(ctx, engine.NotificationPayload{To: "not-an-address", Template: "welcome"})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.call() == nil {
				t.Error("invalid payload was admitted")
			}
		})
	}

	// Nothing reached the queue.
	if s := e.Stats(); s.Pending != 0 || s.Delayed != 0 {
		t.Errorf("rejected payloads left jobs behind: %+v", s)
	}
}

func TestEnqueueNotification_SendAfterDelays(t *testing.T) {
	e := newTestEngine(t)

	jobID, err := e.EnqueueNotification(context.Background(), engine.NotificationPayload{
		To:        "analyst@valuatech.example",
		Template:  "report-ready",
		SendAfter: time.Hour,
	})
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	j, _ := e.Queue().Get(jobID)
	if j.Status != job.StatusDelayed || j.Delay != time.Hour {
		t.Errorf("status=%s delay=%v, want delayed for 1h", j.Status, j.Delay)
	}
	if j.Priority != 1 || j.MaxAttempts != 5 {
		t.Errorf("notification defaults not applied: priority=%d maxAttempts=%d", j.Priority, j.MaxAttempts)
	}
}

func TestEnqueueBatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	reqs := []engine.JobRequest{
		{Type: "data.export", Priority: 3},
		{Type: "notify.email", Delay: time.Minute},
	}
	jobIDs, err := e.EnqueueBatch(ctx, reqs)
	if err != nil {
		t.Fatalf("batch error: %v", err)
	}
	if len(jobIDs) != 2 {
		t.Fatalf("got %d ids, want 2", len(jobIDs))
	}
	first, _ := e.Queue().Get(jobIDs[0])
	if first.Priority != 3 {
		t.Errorf("batch entry priority = %d, want 3", first.Priority)
	}
	second, _ := e.Queue().Get(jobIDs[1])
	if second.Status != job.StatusDelayed {
		t.Errorf("delayed batch entry status = %s", second.Status)
	}
}

func TestEnqueueBatch_CapAndPartialFailure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	oversized := make([]engine.JobRequest, engine.MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = engine.JobRequest{Type: "data.export"}
	}
	if _, err := e.EnqueueBatch(ctx, oversized); !errors.Is(err, taskq.ErrBatchTooLarge) {
		t.Errorf("oversized batch: err = %v, want ErrBatchTooLarge", err)
	}
	if s := e.Stats(); s.Pending != 0 {
		t.Errorf("oversized batch enqueued %d jobs before rejection", s.Pending)
	}

	// Invalid entry mid-batch: the successful prefix stays enqueued.
	jobIDs, err := e.EnqueueBatch(ctx, []engine.JobRequest{
		{Type: "data.export"},
		{Type: ""},
		{Type: "notify.email"},
	})
	if err == nil {
		t.Fatal("batch with an invalid entry succeeded")
	}
	if len(jobIDs) != 1 {
		t.Fatalf("got %d ids for the successful prefix, want 1", len(jobIDs))
	}
	if _, err := e.Queue().Get(jobIDs[0]); err != nil {
		t.Errorf("prefix job missing: %v", err)
	}
}

func TestProcessWorkflow_Passthrough(t *testing.T) {
	e := newTestEngine(t, engine.WithDependencyFloor(80*time.Millisecond))
	ctx := context.Background()

	dep, err := e.EnqueueValuation(ctx, engine.ValuationPayload{CompanyID: "c", Method: "multiples"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.ProcessWorkflow(ctx, []workflow.Step{
		{Type: engine.TypeValuation, Data: json.RawMessage(`{"company_id":"c","method":"dcf"}`)},
		{Type: engine.TypeReport, DependsOn: dep},
	})
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if res.WorkflowID.IsNil() || len(res.JobIDs) != 2 {
		t.Fatalf("result = %+v", res)
	}

	// The dependency is still pending, so the configured 80ms floor
	// applies to the dependent step.
	dependent, _ := e.Queue().Get(res.JobIDs[1])
	if dependent.Delay != 80*time.Millisecond {
		t.Errorf("dependent delay = %v, want the 80ms floor", dependent.Delay)
	}

	var env workflow.Envelope
	if err := json.Unmarshal(dependent.Data, &env); err != nil {
		t.Fatal(err)
	}
	if env.WorkflowID.String() != res.WorkflowID.String() || env.DependsOn.String() != dep.String() {
		t.Errorf("envelope = %+v", env)
	}
}

// captureHandler records log messages for assertions.
type captureHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) has(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestNew_OptionOrderDoesNotMatter(t *testing.T) {
	capture := &captureHandler{}
	logger := slog.New(capture)
	cfg := taskq.DefaultConfig()
	q := queue.New(cfg, queue.WithLogger(logger))

	// Floor before logger: the orchestrator must still end up with
	// both the 70ms floor and the supplied logger.
	e := engine.New(q,
		engine.WithDependencyFloor(70*time.Millisecond),
		engine.WithLogger(logger),
	)

	res, err := e.ProcessWorkflow(context.Background(), []workflow.Step{
		{Type: engine.TypeReport, DependsOn: id.NewJobID()},
	})
	if err != nil {
		t.Fatalf("workflow error: %v", err)
	}

	dependent, _ := q.Get(res.JobIDs[0])
	if dependent.Delay != 70*time.Millisecond {
		t.Errorf("dependent delay = %v, want the 70ms floor", dependent.Delay)
	}
	if !capture.has("workflow enqueued") {
		t.Error("orchestrator did not log through the configured logger")
	}
}

func TestStartJanitor(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.StartJanitor(ctx, "not a schedule", time.Hour); err == nil {
		t.Error("bad schedule accepted")
	}

	e.Queue().Register("data.export", func(context.Context, *job.Task) ([]byte, error) {
		return nil, nil
	})
	jobID, err := e.EnqueueExport(ctx, engine.ExportPayload{Entity: "companies", Format: "csv"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, "export to complete", func() bool {
		j, err := e.Queue().Get(jobID)
		return err == nil && j.Status == job.StatusCompleted
	})

	if err := e.StartJanitor(ctx, "@every 25ms", 0); err != nil {
		t.Fatalf("janitor error: %v", err)
	}
	waitFor(t, 3*time.Second, "janitor to remove the terminal job", func() bool {
		_, err := e.Queue().Get(jobID)
		return errors.Is(err, taskq.ErrJobNotFound)
	})
}
