package queue

import "time"

// Stats is a point-in-time snapshot of queue state and throughput.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Delayed    int `json:"delayed"`

	// TotalProcessed counts successfully completed executions since
	// the queue was created.
	TotalProcessed int64 `json:"total_processed"`

	// AverageProcessingTime is the rolling mean duration of completed
	// executions.
	AverageProcessingTime time.Duration `json:"average_processing_time"`

	// ThroughputPerMinute is the number of completions within the
	// trailing throughput window, normalized to one minute.
	ThroughputPerMinute int `json:"throughput_per_minute"`
}

// tracker accumulates completion statistics. It is not synchronized;
// the queue mutates it only with the core mutex held.
type tracker struct {
	window time.Duration

	completed int64
	meanNanos float64

	// recent holds completion timestamps within the trailing window,
	// oldest first, pruned on every record and read.
	recent []time.Time
}

func newTracker(window time.Duration) tracker {
	if window <= 0 {
		window = time.Minute
	}
	return tracker{window: window}
}

// record folds one completed execution into the rolling statistics.
func (t *tracker) record(elapsed time.Duration, now time.Time) {
	t.completed++
	// Incremental mean: no unbounded history needed.
	t.meanNanos += (float64(elapsed) - t.meanNanos) / float64(t.completed)

	t.recent = append(t.recent, now)
	t.prune(now)
}

// prune drops completion timestamps that fell out of the window.
func (t *tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.recent) && !t.recent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.recent = append(t.recent[:0], t.recent[i:]...)
	}
}

// average returns the rolling mean processing time.
func (t *tracker) average() time.Duration {
	return time.Duration(t.meanNanos)
}

// throughputPerMinute returns completions in the trailing window scaled
// to a one-minute rate.
func (t *tracker) throughputPerMinute(now time.Time) int {
	t.prune(now)
	if t.window == time.Minute {
		return len(t.recent)
	}
	return int(float64(len(t.recent)) * float64(time.Minute) / float64(t.window))
}
