package scheduler

import (
	"context"
	"fmt"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// Register binds kind to a handler taking the payload type P. Tasks of that
// kind whose payload is missing or not a P fail without reaching fn.
func Register[P any](s *Scheduler, kind string, fn func(ctx context.Context, task *tasks.Task, payload P) (any, error)) {
	s.HandleFunc(kind, func(ctx context.Context, task *tasks.Task) (any, error) {
		if task.Payload == nil {
			return nil, fmt.Errorf("task %s: %w", task.ID, tasks.ErrMissingPayload)
		}

		payload, ok := task.Payload.(P)
		if !ok {
			var want P
			return nil, fmt.Errorf("%w: kind %q expects %T, got %T", ErrPayloadType, kind, want, task.Payload)
		}

		return fn(ctx, task, payload)
	})
}
