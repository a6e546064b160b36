package httpclient

import (
	"time"
)

// Config holds the transport pool configuration
type Config struct {
	// Connection pool
	MaxIdleConns        int           // Idle connections kept across all hosts (default: 100)
	MaxIdleConnsPerHost int           // Idle connections kept per host (default: 10)
	IdleConnTimeout     time.Duration // Close idle connections after (default: 90s)

	// Requests
	DefaultTimeout time.Duration // Used when a request carries no timeout (default: 30s)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DefaultTimeout:      30 * time.Second,
	}
}
