package job

import (
	"context"
	"encoding/json"
	"fmt"
)

// Definition is a typed processor definition. T is the payload type
// (must be JSON-serializable).
type Definition[T any] struct {
	// Type is the job type this processor handles.
	Type string

	// Handler processes a typed payload. The returned value (if
	// non-nil) is JSON-marshaled into the job's Result.
	Handler func(ctx context.Context, t *Task, payload T) (any, error)

	// Opts are the default enqueue options for this job type.
	Opts Options
}

// NewDefinition creates a typed processor definition.
func NewDefinition[T any](typ string, handler func(ctx context.Context, t *Task, payload T) (any, error), opts ...Option) *Definition[T] {
	def := &Definition[T]{Type: typ, Handler: handler}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}

// RegisterDefinition registers a typed definition. The generic handler
// is wrapped in a closure that JSON-unmarshals the payload into T
// before calling the typed handler and marshals its result back.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	fn := func(ctx context.Context, t *Task) ([]byte, error) {
		var payload T
		if len(t.Payload) > 0 {
			if err := json.Unmarshal(t.Payload, &payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload for job type %q: %w", def.Type, err)
			}
		}

		out, err := def.Handler(ctx, t, payload)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}

		result, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("marshal result for job type %q: %w", def.Type, err)
		}
		return result, nil
	}

	r.Register(def.Type, fn)
}
