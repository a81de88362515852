package queue

import (
	"container/heap"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/valuatech/taskq"
	"github.com/valuatech/taskq/backoff"
	"github.com/valuatech/taskq/hook"
	"github.com/valuatech/taskq/id"
	"github.com/valuatech/taskq/job"
	"github.com/valuatech/taskq/middleware"
)

// record pairs a job with its admission sequence number. The sequence
// is the creation-order tie-break at dispatch time; wall-clock
// timestamps can collide at nanosecond resolution.
type record struct {
	j   *job.Job
	seq uint64
}

// Queue is the queue core. It owns every job record in the process,
// runs the dispatch loop, and enforces concurrency, timeout, and retry
// policy. Construct one per process with New and share the handle.
type Queue struct {
	cfg      taskq.Config
	registry *job.Registry
	bo       backoff.Strategy
	extraMW  []middleware.Middleware
	mw       middleware.Middleware
	hooks    *hook.Registry
	limits   *Limits
	logger   *slog.Logger

	mu         sync.Mutex
	jobs       map[string]*record
	processing map[string]struct{}
	delayed    delayHeap
	nextSeq    uint64
	stats      tracker

	running  bool
	shutdown bool
	stopCh   chan struct{}
	loopWG   sync.WaitGroup
}

// New creates a Queue from the given configuration. Zero-valued config
// fields fall back to taskq.DefaultConfig.
func New(cfg taskq.Config, opts ...Option) *Queue {
	def := taskq.DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.ThroughputWindow <= 0 {
		cfg.ThroughputWindow = def.ThroughputWindow
	}

	q := &Queue{
		cfg:        cfg,
		logger:     slog.Default(),
		jobs:       make(map[string]*record),
		processing: make(map[string]struct{}),
		stats:      newTracker(cfg.ThroughputWindow),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	if q.registry == nil {
		q.registry = job.NewRegistry()
	}
	if q.bo == nil {
		q.bo = backoff.Default(cfg.RetryDelay)
	}
	if q.hooks == nil {
		q.hooks = hook.NewRegistry(q.logger)
	}

	// Default chain: panic isolation outermost, then logging and
	// metrics; caller-supplied middleware run closest to the processor.
	mws := []middleware.Middleware{
		middleware.Recover(q.logger),
		middleware.Logging(q.logger),
		middleware.Metrics(),
	}
	mws = append(mws, q.extraMW...)
	q.mw = middleware.Chain(mws...)

	return q
}

// Registry returns the processor registry.
func (q *Queue) Registry() *job.Registry { return q.registry }

// Hooks returns the lifecycle hook registry.
func (q *Queue) Hooks() *hook.Registry { return q.hooks }

// Config returns a copy of the queue's configuration.
func (q *Queue) Config() taskq.Config { return q.cfg }

// Register binds a handler to a job type, replacing any previous binding.
func (q *Queue) Register(typ string, fn job.HandlerFunc) {
	q.registry.Register(typ, fn)
}

// Start launches the dispatch loop. It returns immediately; scheduling
// happens on the configured tick until Shutdown is called or ctx is
// cancelled.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return taskq.ErrShutDown
	}
	if q.running {
		return nil
	}
	q.running = true

	q.logger.Info("queue starting",
		slog.Int("concurrency", q.cfg.Concurrency),
		slog.Duration("tick_interval", q.cfg.TickInterval),
		slog.Duration("job_timeout", q.cfg.JobTimeout),
	)

	q.loopWG.Add(1)
	go q.run(ctx)
	return nil
}

// Add creates a job and returns its identifier. The job starts out
// pending, or delayed when a delay option is set; a delayed job flips
// to pending once its delay elapses (observed at tick granularity).
//
// Processor and timeout errors are never returned here; they are
// recorded onto the job record and drive the retry state machine.
func (q *Queue) Add(ctx context.Context, typ string, data []byte, opts ...job.Option) (id.ID, error) {
	if typ == "" {
		return id.Nil, taskq.ErrEmptyType
	}

	var o job.Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = q.cfg.MaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = q.cfg.JobTimeout
	}

	jobID := o.JobID
	if jobID.IsNil() {
		jobID = id.NewJobID()
	}

	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return id.Nil, taskq.ErrShutDown
	}

	key := jobID.String()
	if _, exists := q.jobs[key]; exists {
		q.mu.Unlock()
		return id.Nil, taskq.ErrJobAlreadyExists
	}

	j := &job.Job{
		Entity:      taskq.NewEntity(),
		ID:          jobID,
		Type:        typ,
		Data:        data,
		Status:      job.StatusPending,
		Priority:    o.Priority,
		MaxAttempts: o.MaxAttempts,
		Delay:       o.Delay,
		Timeout:     o.Timeout,
	}

	q.nextSeq++
	seq := q.nextSeq
	if o.Delay > 0 {
		j.Status = job.StatusDelayed
		heap.Push(&q.delayed, delayEntry{at: j.CreatedAt.Add(o.Delay), key: key, seq: seq})
	}
	q.jobs[key] = &record{j: j, seq: seq}

	cp := *j
	q.mu.Unlock()

	q.hooks.EmitJobEnqueued(ctx, &cp)
	return jobID, nil
}

// Get returns a snapshot of the job with the given ID, or
// taskq.ErrJobNotFound.
func (q *Queue) Get(jobID id.ID) (*job.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.jobs[jobID.String()]
	if !ok {
		return nil, taskq.ErrJobNotFound
	}
	cp := *rec.j
	return &cp, nil
}

// ByStatus returns snapshots of all jobs in the given status, in
// creation order.
func (q *Queue) ByStatus(status job.Status) []*job.Job {
	return q.collect(func(r *record) bool { return r.j.Status == status })
}

// ByType returns snapshots of all jobs of the given type, in creation
// order.
func (q *Queue) ByType(typ string) []*job.Job {
	return q.collect(func(r *record) bool { return r.j.Type == typ })
}

func (q *Queue) collect(match func(*record) bool) []*job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	recs := make([]*record, 0, len(q.jobs))
	for _, rec := range q.jobs {
		if match(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, k int) bool { return recs[i].seq < recs[k].seq })

	out := make([]*job.Job, len(recs))
	for i, rec := range recs {
		cp := *rec.j
		out[i] = &cp
	}
	return out
}

// Cancel removes a pending or delayed job and reports whether it did.
// Processing jobs, terminal jobs, and unknown IDs return false; there
// is no mechanism to interrupt a dispatched processor.
func (q *Queue) Cancel(ctx context.Context, jobID id.ID) bool {
	q.mu.Lock()

	key := jobID.String()
	rec, ok := q.jobs[key]
	if !ok || (rec.j.Status != job.StatusPending && rec.j.Status != job.StatusDelayed) {
		q.mu.Unlock()
		return false
	}

	// Any armed delay entry for this key is invalidated lazily: with
	// the record gone it is dropped when it pops.
	delete(q.jobs, key)
	cp := *rec.j
	q.mu.Unlock()

	q.hooks.EmitJobCancelled(ctx, &cp)
	return true
}

// Retry resets a failed job for another round of attempts: attempts
// back to zero, error and failure timestamp cleared, status pending.
// Returns false for any job that is not failed.
func (q *Queue) Retry(ctx context.Context, jobID id.ID) bool {
	q.mu.Lock()

	rec, ok := q.jobs[jobID.String()]
	if !ok || rec.j.Status != job.StatusFailed {
		q.mu.Unlock()
		return false
	}

	rec.j.Attempts = 0
	rec.j.Error = ""
	rec.j.FailedAt = nil
	rec.j.Status = job.StatusPending
	rec.j.UpdatedAt = time.Now().UTC()
	cp := *rec.j
	q.mu.Unlock()

	q.logger.Info("job reset for retry",
		slog.String("job_id", cp.ID.String()),
		slog.String("job_type", cp.Type),
	)
	q.hooks.EmitJobEnqueued(ctx, &cp)
	return true
}

// Clean deletes completed and failed jobs created more than maxAge ago
// and returns how many it removed. It is idempotent.
func (q *Queue) Clean(maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	count := 0
	for key, rec := range q.jobs {
		if rec.j.Status.Terminal() && rec.j.CreatedAt.Before(cutoff) {
			delete(q.jobs, key)
			count++
		}
	}
	return count
}

// Stats returns a snapshot of per-status counts and rolling throughput
// statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, rec := range q.jobs {
		switch rec.j.Status {
		case job.StatusPending:
			s.Pending++
		case job.StatusProcessing:
			s.Processing++
		case job.StatusCompleted:
			s.Completed++
		case job.StatusFailed:
			s.Failed++
		case job.StatusDelayed:
			s.Delayed++
		}
	}

	now := time.Now().UTC()
	s.TotalProcessed = q.stats.completed
	s.AverageProcessingTime = q.stats.average()
	s.ThroughputPerMinute = q.stats.throughputPerMinute(now)
	return s
}

// Shutdown stops the dispatch loop, disarms all delay entries, then
// polls until no job is processing or the configured soft deadline
// elapses. The drain is best-effort: processors still running at the
// deadline keep running detached, as they would after a timeout.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return nil
	}
	q.shutdown = true
	wasRunning := q.running
	q.running = false
	q.mu.Unlock()

	if wasRunning {
		close(q.stopCh)
		q.loopWG.Wait()
	}

	q.mu.Lock()
	q.delayed = q.delayed[:0]
	q.mu.Unlock()

	q.logger.Info("queue draining", slog.Duration("soft_deadline", q.cfg.ShutdownTimeout))

	deadline := time.NewTimer(q.cfg.ShutdownTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	for {
		q.mu.Lock()
		active := len(q.processing)
		q.mu.Unlock()
		if active == 0 {
			q.logger.Info("queue drained")
			return nil
		}

		select {
		case <-deadline.C:
			q.logger.Warn("queue shutdown deadline elapsed with jobs still processing",
				slog.Int("processing", active),
			)
			return nil
		case <-ctx.Done():
			q.logger.Warn("queue shutdown cancelled with jobs still processing",
				slog.Int("processing", active),
			)
			return ctx.Err()
		case <-poll.C:
		}
	}
}
