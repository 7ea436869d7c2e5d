package monitor

import "time"

// Config holds the configuration for the count monitor.
type Config struct {
	Interval     time.Duration // Interval between polls
	ReadTimeout  time.Duration // Timeout for each TotalCount call
	MaxRetries   int           // Retry attempts for a failed poll before it is counted as an error
	RetryBackoff time.Duration // Backoff between retry attempts
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     15 * time.Second,
		ReadTimeout:  5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
	}
}
