package tasks

import "time"

// Config tunes the background queue. The entrypoint fills it from the env
// settings; DefaultConfig is the test baseline.
type Config struct {
	// Workers sets how many goroutines consume the queue concurrently.
	Workers int

	// MaxRetries bounds the attempts per task before it is marked failed.
	MaxRetries int

	// RetryDelay is the backoff between attempts.
	RetryDelay time.Duration

	// TaskTimeout caps a single task execution.
	TaskTimeout time.Duration

	// ReleaseAfter returns a claimed but unfinished task to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval sets how often completed tasks are pruned.
	CleanupInterval time.Duration

	// RetentionDuration is how long finished tasks stay queryable.
	RetentionDuration time.Duration
}

// DefaultConfig matches the env defaults in the config package.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
