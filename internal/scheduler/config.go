package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the scheduler configuration
type Config struct {
	// Worker pool
	WorkerPoolSize int // Max concurrently running tasks, 0 means unbounded (default: 10)

	// Failure policy
	FailFast bool // Cancel the rest of a batch on its first failure (default: false)

	// Metrics registry, nil keeps metrics private to the scheduler
	Registerer prometheus.Registerer
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		WorkerPoolSize: 10,
		FailFast:       false,
	}
}

// ScheduleOptions holds per-batch overrides
type ScheduleOptions struct {
	FailFast bool
}

// ScheduleOption is a functional option for Schedule
type ScheduleOption func(*ScheduleOptions)

// WithFailFast cancels the remaining tasks once any task fails
func WithFailFast() ScheduleOption {
	return func(o *ScheduleOptions) { o.FailFast = true }
}

// WithIsolation keeps failures scoped to their own task, overriding Config.FailFast
func WithIsolation() ScheduleOption {
	return func(o *ScheduleOptions) { o.FailFast = false }
}
