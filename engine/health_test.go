package engine_test

import (
	"testing"
	"time"

	"github.com/valuatech/taskq/engine"
	"github.com/valuatech/taskq/queue"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		stats queue.Stats
		want  engine.HealthStatus
	}{
		{
			name:  "idle queue",
			stats: queue.Stats{},
			want:  engine.HealthOK,
		},
		{
			name:  "busy but healthy",
			stats: queue.Stats{Pending: 10, Processing: 3, Completed: 200, Failed: 5},
			want:  engine.HealthOK,
		},
		{
			name:  "pending with nothing processing",
			stats: queue.Stats{Pending: 1, Processing: 0},
			want:  engine.HealthCritical,
		},
		{
			name:  "average time past critical ceiling",
			stats: queue.Stats{Processing: 1, AverageProcessingTime: 11 * time.Minute},
			want:  engine.HealthCritical,
		},
		{
			name:  "failures above ten percent of completions",
			stats: queue.Stats{Processing: 1, Completed: 100, Failed: 11},
			want:  engine.HealthWarning,
		},
		{
			name:  "failures with zero completions",
			stats: queue.Stats{Processing: 1, Failed: 1},
			want:  engine.HealthWarning,
		},
		{
			name:  "failures exactly at ten percent",
			stats: queue.Stats{Processing: 1, Completed: 100, Failed: 10},
			want:  engine.HealthOK,
		},
		{
			name:  "backlog past threshold",
			stats: queue.Stats{Pending: 101, Processing: 2},
			want:  engine.HealthWarning,
		},
		{
			name:  "backlog exactly at threshold",
			stats: queue.Stats{Pending: 100, Processing: 2},
			want:  engine.HealthOK,
		},
		{
			name:  "average time past warning ceiling",
			stats: queue.Stats{Processing: 1, AverageProcessingTime: 6 * time.Minute},
			want:  engine.HealthWarning,
		},
		{
			name:  "critical outranks warnings",
			stats: queue.Stats{Pending: 500, Processing: 0, Completed: 10, Failed: 10},
			want:  engine.HealthCritical,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Classify(tc.stats)
			if got.Status != tc.want {
				t.Errorf("Classify(%+v).Status = %s, want %s (reasons: %v)", tc.stats, got.Status, tc.want, got.Reasons)
			}
			if tc.want != engine.HealthOK && len(got.Reasons) == 0 {
				t.Error("degraded verdict carries no reasons")
			}

			// Deterministic: same snapshot, same verdict.
			again := engine.Classify(tc.stats)
			if again.Status != got.Status {
				t.Errorf("Classify is not deterministic: %s then %s", got.Status, again.Status)
			}
		})
	}
}
