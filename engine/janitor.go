package engine

import (
	"context"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron and descriptors like
// "@every 10m".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// StartJanitor removes terminal jobs older than maxAge on the given
// cron schedule until ctx is done. The schedule is validated before
// the goroutine starts; a bad expression is returned synchronously.
func (e *Engine) StartJanitor(ctx context.Context, schedule string, maxAge time.Duration) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("engine: janitor schedule %q: %w", schedule, err)
	}

	go func() {
		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if n := e.q.Clean(maxAge); n > 0 {
					e.logger.Info("janitor removed aged jobs", "count", n, "max_age", maxAge)
				}
				timer.Reset(time.Until(sched.Next(time.Now())))
			}
		}
	}()
	return nil
}
