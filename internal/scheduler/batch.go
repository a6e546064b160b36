package scheduler

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// Outcome pairs a task with its result. Err is nil on success.
type Outcome struct {
	Task     *tasks.Task
	Value    any
	Err      error
	Duration time.Duration
}

// Failed reports whether the task ended with an error
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Status classifies the outcome for logs and metrics
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return tasks.StatusCompleted
	case errors.Is(o.Err, ErrUnsupportedKind):
		return tasks.StatusUnsupported
	case errors.Is(o.Err, context.Canceled):
		return tasks.StatusCancelled
	default:
		return tasks.StatusFailed
	}
}

type entry struct {
	task   *tasks.Task
	ctx    context.Context
	cancel context.CancelFunc
}

// Batch is one scheduled set of tasks. Its outcomes arrive in completion order.
// Outcomes are buffered, so a caller may stop reading early; the remaining
// tasks still run to completion unless the batch is cancelled.
type Batch struct {
	results chan Outcome
	done    chan struct{}
	cancel  context.CancelFunc
	entries []entry
	wg      sync.WaitGroup
}

// Len returns the number of tasks in the batch
func (b *Batch) Len() int {
	return len(b.entries)
}

// Results returns the outcome channel. It is closed after the last outcome.
// Results and All read from the same channel.
func (b *Batch) Results() <-chan Outcome {
	return b.results
}

// All yields (task, outcome) pairs as tasks complete
func (b *Batch) All() iter.Seq2[*tasks.Task, Outcome] {
	return func(yield func(*tasks.Task, Outcome) bool) {
		for o := range b.results {
			if !yield(o.Task, o) {
				return
			}
		}
	}
}

// Collect drains every remaining outcome, in completion order
func (b *Batch) Collect() []Outcome {
	outcomes := make([]Outcome, 0, len(b.entries))
	for o := range b.results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Cancel cancels every task still running or waiting for a worker
func (b *Batch) Cancel() {
	b.cancel()
}

// CancelTask cancels the tasks with the given ID and reports whether any matched
func (b *Batch) CancelTask(id string) bool {
	found := false
	for _, e := range b.entries {
		if e.task.ID == id {
			e.cancel()
			found = true
		}
	}
	return found
}

// Done is closed once every task of the batch has finished
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every task finished or ctx expires
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
