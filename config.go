package taskq

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds configuration for a queue core.
type Config struct {
	// Concurrency is the maximum number of jobs in the processing
	// state at any instant.
	Concurrency int `env:"TASKQ_CONCURRENCY, default=5"`

	// TickInterval is how often the dispatch loop runs. Scheduling is
	// tick-granular: delayed jobs, retries, and free slots are all
	// observed at tick boundaries.
	TickInterval time.Duration `env:"TASKQ_TICK_INTERVAL, default=100ms"`

	// JobTimeout is the default deadline a processor is raced against.
	// Individual jobs may override it via job.WithTimeout.
	JobTimeout time.Duration `env:"TASKQ_JOB_TIMEOUT, default=2m"`

	// RetryDelay is the base delay for the exponential retry backoff:
	// the Nth failure waits RetryDelay * 2^(N-1) before re-eligibility.
	RetryDelay time.Duration `env:"TASKQ_RETRY_DELAY, default=5s"`

	// MaxAttempts is the default attempt budget for jobs that do not
	// set their own via job.WithMaxAttempts.
	MaxAttempts int `env:"TASKQ_MAX_ATTEMPTS, default=3"`

	// ShutdownTimeout is the soft deadline for the best-effort drain
	// performed by Shutdown.
	ShutdownTimeout time.Duration `env:"TASKQ_SHUTDOWN_TIMEOUT, default=30s"`

	// ThroughputWindow is the trailing window over which
	// Stats.ThroughputPerMinute is computed.
	ThroughputWindow time.Duration `env:"TASKQ_THROUGHPUT_WINDOW, default=1m"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:      5,
		TickInterval:     100 * time.Millisecond,
		JobTimeout:       2 * time.Minute,
		RetryDelay:       5 * time.Second,
		MaxAttempts:      3,
		ShutdownTimeout:  30 * time.Second,
		ThroughputWindow: time.Minute,
	}
}

// FromEnv builds a Config from TASKQ_* environment variables, falling
// back to the defaults above for unset values.
func FromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
