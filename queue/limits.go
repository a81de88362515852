package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// TypeLimit defines per-job-type behaviour such as rate limiting and
// concurrency.
type TypeLimit struct {
	// Type is the job type this limit applies to.
	Type string

	// MaxConcurrency limits how many jobs of this type may be
	// processing simultaneously. Zero means no type-specific limit
	// (the queue-wide cap still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained dispatches per second for
	// this type. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// typeState tracks runtime state for a single job type.
type typeState struct {
	limit   TypeLimit
	limiter *rate.Limiter
	active  int
}

// Limits controls per-type rate limiting and concurrency. The dispatch
// loop calls Acquire before launching a job of a limited type and
// Release when its execution resolves. A job held back by a limit stays
// pending and is reconsidered on a later tick.
//
// It is safe for concurrent use.
type Limits struct {
	mu    sync.Mutex
	types map[string]*typeState
}

// NewLimits creates a Limits with the given per-type configurations.
// Types not listed have no limits.
func NewLimits(limits ...TypeLimit) *Limits {
	l := &Limits{types: make(map[string]*typeState, len(limits))}
	for _, tl := range limits {
		l.types[tl.Type] = newTypeState(tl)
	}
	return l
}

func newTypeState(tl TypeLimit) *typeState {
	ts := &typeState{limit: tl}
	if tl.RateLimit > 0 {
		burst := tl.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(tl.RateLimit), burst)
	}
	return ts
}

// Acquire checks the rate limit and concurrency for the given type. If
// the job is allowed to proceed it increments the active counter and
// returns true. The caller MUST call Release when the job resolves.
func (l *Limits) Acquire(typ string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.types[typ]
	if ts == nil {
		return true
	}
	// Concurrency first: a job held back by the active count must not
	// consume a rate token.
	if ts.limit.MaxConcurrency > 0 && ts.active >= ts.limit.MaxConcurrency {
		return false
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}
	ts.active++
	return true
}

// Release decrements the active count for the given type.
func (l *Limits) Release(typ string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[typ]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// ActiveCount returns the number of currently processing jobs of the
// given type, as seen by the limiter.
func (l *Limits) ActiveCount(typ string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[typ]; ts != nil {
		return ts.active
	}
	return 0
}
