package engine

import (
	"fmt"
	"time"

	"github.com/valuatech/taskq/queue"
)

// HealthStatus is the classifier's verdict.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Classifier thresholds.
const (
	backlogWarning      = 100
	failureRatioWarning = 0.10
	avgTimeWarning      = 5 * time.Minute
	avgTimeCritical     = 10 * time.Minute
)

// Health is the classified state of a queue at one stats snapshot.
type Health struct {
	Status  HealthStatus `json:"status"`
	Reasons []string     `json:"reasons,omitempty"`
	Stats   queue.Stats  `json:"stats"`
}

// Classify grades a stats snapshot. It is a pure function of its
// argument: the same snapshot always yields the same verdict.
//
// Critical: jobs are waiting but nothing is processing (a stalled or
// stopped dispatch loop), or the average processing time passed the
// critical ceiling. Warning: failures exceed 10% of completions, the
// pending backlog passed 100, or the average processing time passed
// the warning ceiling.
func Classify(s queue.Stats) Health {
	h := Health{Status: HealthOK, Stats: s}

	if s.Pending > 0 && s.Processing == 0 {
		h.Status = HealthCritical
		h.Reasons = append(h.Reasons, fmt.Sprintf("%d pending jobs with none processing", s.Pending))
	}
	if s.AverageProcessingTime > avgTimeCritical {
		h.Status = HealthCritical
		h.Reasons = append(h.Reasons, fmt.Sprintf("average processing time %s exceeds %s", s.AverageProcessingTime, avgTimeCritical))
	}
	if h.Status == HealthCritical {
		return h
	}

	if s.Failed > 0 && float64(s.Failed) > failureRatioWarning*float64(s.Completed) {
		h.Status = HealthWarning
		h.Reasons = append(h.Reasons, fmt.Sprintf("%d failed jobs against %d completed", s.Failed, s.Completed))
	}
	if s.Pending > backlogWarning {
		h.Status = HealthWarning
		h.Reasons = append(h.Reasons, fmt.Sprintf("pending backlog at %d", s.Pending))
	}
	if s.AverageProcessingTime > avgTimeWarning {
		h.Status = HealthWarning
		h.Reasons = append(h.Reasons, fmt.Sprintf("average processing time %s exceeds %s", s.AverageProcessingTime, avgTimeWarning))
	}
	return h
}

// Health classifies the queue's current stats snapshot.
func (e *Engine) Health() Health {
	return Classify(e.q.Stats())
}
