package queue

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/valuatech/taskq/job"
)

// launch is one job selected for execution in a tick, captured as a
// snapshot so the executing goroutine never touches the owned record.
type launch struct {
	j  job.Job
	fn job.HandlerFunc
}

// run is the dispatch loop goroutine. Each tick promotes due delayed
// jobs, selects runnable pending jobs under the concurrency cap, and
// launches them without blocking on their completion.
func (q *Queue) run(ctx context.Context) {
	defer q.loopWG.Done()

	ticker := time.NewTicker(q.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.tick(ctx)
		}
	}
}

// tick is one dispatch iteration. Its own bookkeeping is
// panic-isolated so a single bad record cannot halt scheduling.
func (q *Queue) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("dispatch tick panicked", slog.Any("panic", r))
		}
	}()

	for _, l := range q.selectRunnable() {
		go q.execute(ctx, l)
	}
}

// selectRunnable promotes due delayed jobs, then claims up to the free
// number of slots from the pending set, ordered by priority descending
// and creation order ascending. Claimed jobs are marked processing
// before the lock is released, so the cap holds no matter how ticks and
// completions interleave.
func (q *Queue) selectRunnable() []launch {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()

	// Promote delay entries that have come due. Entries whose job is
	// gone, no longer delayed, or a different incarnation of the same
	// ID (cancelled and re-added under an explicit JobID) are stale;
	// drop them.
	for q.delayed.Len() > 0 && !q.delayed[0].at.After(now) {
		e := heap.Pop(&q.delayed).(delayEntry)
		rec, ok := q.jobs[e.key]
		if !ok || rec.seq != e.seq || rec.j.Status != job.StatusDelayed {
			continue
		}
		rec.j.Status = job.StatusPending
		rec.j.UpdatedAt = now
	}

	free := q.cfg.Concurrency - len(q.processing)
	if free <= 0 {
		return nil
	}

	candidates := make([]*record, 0, len(q.jobs))
	for _, rec := range q.jobs {
		if rec.j.Status == job.StatusPending {
			candidates = append(candidates, rec)
		}
	}
	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].j.Priority != candidates[k].j.Priority {
			return candidates[i].j.Priority > candidates[k].j.Priority
		}
		return candidates[i].seq < candidates[k].seq
	})

	launches := make([]launch, 0, free)
	for _, rec := range candidates {
		if len(launches) >= free {
			break
		}

		fn, ok := q.registry.Get(rec.j.Type)
		if !ok {
			// No processor for this type: the job is skipped and stays
			// pending until one is registered.
			q.logger.Debug("no processor registered for job type",
				slog.String("job_type", rec.j.Type),
				slog.String("job_id", rec.j.ID.String()),
			)
			continue
		}

		if q.limits != nil && !q.limits.Acquire(rec.j.Type) {
			continue
		}

		rec.j.Status = job.StatusProcessing
		started := now
		rec.j.StartedAt = &started
		rec.j.Attempts++
		rec.j.UpdatedAt = now
		q.processing[rec.j.ID.String()] = struct{}{}

		launches = append(launches, launch{j: *rec.j, fn: fn})
	}

	return launches
}

// outcome is the resolution of one processor invocation.
type outcome struct {
	result []byte
	err    error
}

// execute runs one claimed job: the processor (through the middleware
// chain) is raced against the job's timeout. Whichever signal resolves
// first decides the record's fate; the loser is ignored. A processor
// that loses the race keeps running detached, with no forced stop, and
// its late result is discarded.
func (q *Queue) execute(ctx context.Context, l launch) {
	// A panic in the core's own bookkeeping must not take the process
	// down; the job is failed instead so its slot is released.
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job execution bookkeeping panicked",
				slog.String("job_id", l.j.ID.String()),
				slog.String("job_type", l.j.Type),
				slog.Any("panic", r),
			)
			q.fail(ctx, l.j.ID.String(), fmt.Errorf("internal panic during execution of job type %s: %v", l.j.Type, r))
		}
	}()

	cp := l.j
	q.hooks.EmitJobStarted(ctx, &cp)

	timeout := l.j.Timeout
	if timeout <= 0 {
		timeout = q.cfg.JobTimeout
	}

	task := job.NewTask(l.j.ID, l.j.Type, l.j.Data, l.j.Attempts, q.progressFunc(l.j.ID.String()))

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic in job type %s: %v", l.j.Type, r)}
			}
		}()

		// The processor context carries the deadline so cooperative
		// handlers can stop early, but nothing enforces it: the race
		// below is what decides the record.
		hctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var result []byte
		mwJob := l.j
		err := q.mw(hctx, &mwJob, func(c context.Context) error {
			out, handlerErr := l.fn(c, task)
			if handlerErr != nil {
				return handlerErr
			}
			result = out
			return nil
		})
		ch <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			q.fail(ctx, l.j.ID.String(), out.err)
			return
		}
		q.complete(ctx, l.j.ID.String(), out.result)
	case <-timer.C:
		q.fail(ctx, l.j.ID.String(), fmt.Errorf("processor for job type %q timed out after %s", l.j.Type, timeout))
	}
}

// complete marks a processing job completed and folds its elapsed time
// into the rolling statistics.
func (q *Queue) complete(ctx context.Context, key string, result []byte) {
	q.mu.Lock()

	rec, ok := q.jobs[key]
	if !ok || rec.j.Status != job.StatusProcessing {
		q.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	elapsed := now.Sub(rec.j.StartedAt.UTC())
	rec.j.Status = job.StatusCompleted
	rec.j.Result = result
	rec.j.Progress = 100
	rec.j.CompletedAt = &now
	rec.j.UpdatedAt = now
	delete(q.processing, key)
	q.stats.record(elapsed, now)
	if q.limits != nil {
		q.limits.Release(rec.j.Type)
	}
	cp := *rec.j
	q.mu.Unlock()

	q.hooks.EmitJobCompleted(ctx, &cp, elapsed)
}

// fail records the error on the job, then either schedules an
// exponential-backoff retry or, with the attempt budget exhausted,
// fails the job terminally.
func (q *Queue) fail(ctx context.Context, key string, jobErr error) {
	q.mu.Lock()

	rec, ok := q.jobs[key]
	if !ok || rec.j.Status != job.StatusProcessing {
		q.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	rec.j.Error = jobErr.Error()
	rec.j.UpdatedAt = now
	delete(q.processing, key)
	if q.limits != nil {
		q.limits.Release(rec.j.Type)
	}

	if rec.j.Attempts >= rec.j.MaxAttempts {
		rec.j.Status = job.StatusFailed
		rec.j.FailedAt = &now
		cp := *rec.j
		q.mu.Unlock()

		q.hooks.EmitJobFailed(ctx, &cp, jobErr)
		return
	}

	delay := q.bo.Delay(rec.j.Attempts)
	eligibleAt := now.Add(delay)
	rec.j.Status = job.StatusDelayed
	heap.Push(&q.delayed, delayEntry{at: eligibleAt, key: key, seq: rec.seq})
	cp := *rec.j
	attempt := rec.j.Attempts
	q.mu.Unlock()

	q.logger.Info("job scheduled for retry",
		slog.String("job_id", cp.ID.String()),
		slog.String("job_type", cp.Type),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", cp.MaxAttempts),
		slog.Duration("backoff", delay),
	)
	q.hooks.EmitJobRetrying(ctx, &cp, attempt, eligibleAt)
}

// progressFunc returns the callback a Task uses to write progress back
// onto the owned record. Updates land only while the job is still
// processing; a processor running past a lost timeout race writes into
// the void.
func (q *Queue) progressFunc(key string) job.ProgressFunc {
	return func(pct int) {
		q.mu.Lock()
		defer q.mu.Unlock()

		rec, ok := q.jobs[key]
		if !ok || rec.j.Status != job.StatusProcessing {
			return
		}
		rec.j.Progress = pct
		rec.j.UpdatedAt = time.Now().UTC()
	}
}
