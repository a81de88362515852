package queue

import (
	"testing"
	"time"
)

func TestTracker_IncrementalMean(t *testing.T) {
	tr := newTracker(time.Minute)
	now := time.Now()

	tr.record(100*time.Millisecond, now)
	tr.record(300*time.Millisecond, now)

	if tr.completed != 2 {
		t.Errorf("completed = %d, want 2", tr.completed)
	}
	if got := tr.average(); got != 200*time.Millisecond {
		t.Errorf("average = %v, want 200ms", got)
	}

	tr.record(200*time.Millisecond, now)
	if got := tr.average(); got != 200*time.Millisecond {
		t.Errorf("average after third sample = %v, want 200ms", got)
	}
}

func TestTracker_ThroughputWindowPrunes(t *testing.T) {
	tr := newTracker(time.Minute)
	base := time.Now()

	tr.record(time.Millisecond, base.Add(-90*time.Second))
	tr.record(time.Millisecond, base.Add(-30*time.Second))
	tr.record(time.Millisecond, base)

	// The 90s-old completion fell out of the one-minute window.
	if got := tr.throughputPerMinute(base); got != 2 {
		t.Errorf("throughput = %d, want 2", got)
	}

	// The mean keeps covering all completions regardless of window.
	if tr.completed != 3 {
		t.Errorf("completed = %d, want 3", tr.completed)
	}
}

func TestTracker_NonMinuteWindowNormalizes(t *testing.T) {
	tr := newTracker(30 * time.Second)
	base := time.Now()

	tr.record(time.Millisecond, base)
	tr.record(time.Millisecond, base)

	// Two completions in a 30s window extrapolate to four per minute.
	if got := tr.throughputPerMinute(base); got != 4 {
		t.Errorf("throughput = %d, want 4", got)
	}
}

func TestTracker_ZeroWindowDefaults(t *testing.T) {
	tr := newTracker(0)
	if tr.window != time.Minute {
		t.Errorf("window = %v, want 1m", tr.window)
	}
}
