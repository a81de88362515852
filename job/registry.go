package job

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/valuatech/taskq/id"
)

// ProgressFunc reports processor progress (0-100) back onto the job record.
type ProgressFunc func(pct int)

// Task is the processor-facing view of one job execution. It exposes the
// payload and a progress reporter, but not the record itself: all record
// mutation stays inside the queue core.
type Task struct {
	// ID is the job's identifier.
	ID id.ID
	// Type is the job's type discriminator.
	Type string
	// Payload is the opaque data the job was enqueued with.
	Payload json.RawMessage
	// Attempt is the 1-indexed execution attempt.
	Attempt int

	progress ProgressFunc
}

// NewTask builds the execution view handed to a processor. The progress
// callback may be nil.
func NewTask(jobID id.ID, typ string, payload []byte, attempt int, progress ProgressFunc) *Task {
	return &Task{ID: jobID, Type: typ, Payload: payload, Attempt: attempt, progress: progress}
}

// SetProgress records processor progress. Values are clamped to 0-100.
func (t *Task) SetProgress(pct int) {
	if t.progress == nil {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	t.progress(pct)
}

// HandlerFunc performs the work for one job type. It returns the raw
// result to store on the job record, or an error to drive the
// retry/backoff state machine. Handlers must be safe to invoke
// concurrently for different tasks.
type HandlerFunc func(ctx context.Context, t *Task) ([]byte, error)

// Registry maps job types to handler functions. It is safe for
// concurrent use.
//
// A later Register for an already-registered type silently replaces the
// earlier handler; jobs of a type with no handler at dispatch time are
// skipped and stay pending. Both behaviors are relied upon by callers
// that re-register processors during tests.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a job type, replacing any previous binding.
func (r *Registry) Register(typ string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typ] = fn
}

// Get returns the handler for the given job type.
// Returns false if no handler is registered.
func (r *Registry) Get(typ string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[typ]
	return fn, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for typ := range r.handlers {
		types = append(types, typ)
	}
	return types
}
