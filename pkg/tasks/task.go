package tasks

import (
	"errors"
	"fmt"
)

// Task describes one unit of work submitted to the scheduler.
// The payload shape depends on Kind; the scheduler never inspects it.
type Task struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

// Built-in task kinds
const (
	KindHTTP  = "http"
	KindDelay = "delay"
)

// Outcome status labels
const (
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusUnsupported = "unsupported"
	StatusCancelled   = "cancelled"
)

var (
	// ErrNotImplemented is wrapped by every "unsupported X" error.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMissingPayload is returned by handlers that got a task without payload.
	ErrMissingPayload = errors.New("task payload is missing")

	// ErrInvalidTask marks a malformed task (nil or without a kind).
	ErrInvalidTask = errors.New("invalid task")
)

// Validate checks the fields every kind relies on.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if t.Kind == "" {
		return fmt.Errorf("%w: task %q has no kind", ErrInvalidTask, t.ID)
	}
	return nil
}

// String returns a short label for logs.
func (t *Task) String() string {
	if t.Name == "" {
		return fmt.Sprintf("%s[%s]", t.Kind, t.ID)
	}
	return fmt.Sprintf("%s[%s] %s", t.Kind, t.ID, t.Name)
}
