package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// DelayHandler waits for the payload duration. It backs the "delay" kind,
// which spaces out or pads heterogeneous batches.
func DelayHandler(ctx context.Context, task *tasks.Task, delay time.Duration) (any, error) {
	slog.Debug("executing delay task", "task_id", task.ID, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return delay, nil
	case <-ctx.Done():
		slog.Warn("delay task cancelled", "task_id", task.ID)
		return nil, ctx.Err()
	}
}
