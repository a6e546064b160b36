package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// HandlerFunc is the function signature for task handlers
type HandlerFunc func(ctx context.Context, task *tasks.Task) (any, error)

var (
	// ErrUnsupportedKind is the outcome of a task whose kind has no handler.
	ErrUnsupportedKind = fmt.Errorf("unsupported task kind: %w", tasks.ErrNotImplemented)

	// ErrPayloadType is returned when a payload does not match its kind.
	ErrPayloadType = errors.New("unexpected payload type")

	// ErrHandlerPanic wraps a value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("task handler panicked")
)

// Scheduler dispatches batches of tasks to the handler registered for their kind
type Scheduler struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex

	config  *Config
	metrics *Metrics

	// Worker pool shared by every batch, nil when unbounded
	semaphore chan struct{}
}

// New creates a new scheduler
func New(config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	reg := config.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Scheduler{
		handlers: make(map[string]HandlerFunc),
		config:   config,
		metrics:  NewMetrics(reg),
	}
	if config.WorkerPoolSize > 0 {
		s.semaphore = make(chan struct{}, config.WorkerPoolSize)
	}
	s.metrics.workersCapacity.Set(float64(config.WorkerPoolSize))

	return s
}

// HandleFunc registers a handler for a task kind, replacing any previous one
func (s *Scheduler) HandleFunc(kind string, handler HandlerFunc) {
	s.mu.Lock()
	s.handlers[kind] = handler
	s.mu.Unlock()

	slog.Info("handler registered", "kind", kind)
}

// Kinds returns the registered task kinds, sorted
func (s *Scheduler) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]string, 0, len(s.handlers))
	for k := range s.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (s *Scheduler) handler(kind string) (HandlerFunc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[kind]
	return h, ok
}

// Schedule starts every task of list concurrently and returns the batch
// streaming their outcomes in completion order. Only malformed input is
// reported as an error; task failures travel inside their Outcome.
func (s *Scheduler) Schedule(ctx context.Context, list []*tasks.Task, opts ...ScheduleOption) (*Batch, error) {
	for _, task := range list {
		if err := task.Validate(); err != nil {
			return nil, err
		}
	}

	options := &ScheduleOptions{FailFast: s.config.FailFast}
	for _, opt := range opts {
		opt(options)
	}

	batchCtx, cancel := context.WithCancel(ctx)
	b := &Batch{
		results: make(chan Outcome, len(list)),
		done:    make(chan struct{}),
		cancel:  cancel,
		entries: make([]entry, len(list)),
	}

	for i, task := range list {
		taskCtx, taskCancel := context.WithCancel(batchCtx)
		b.entries[i] = entry{task: task, ctx: taskCtx, cancel: taskCancel}
	}

	slog.Info("batch scheduled", "tasks", len(list), "fail_fast", options.FailFast)

	for _, e := range b.entries {
		s.metrics.tasksScheduled.WithLabelValues(e.task.Kind).Inc()
		b.wg.Add(1)

		go func(e entry) {
			defer b.wg.Done()
			defer e.cancel()

			outcome := s.run(e.ctx, e.task)
			if outcome.Err != nil && options.FailFast {
				slog.Warn("fail-fast: cancelling batch", "task_id", e.task.ID, "error", outcome.Err)
				cancel()
			}
			b.results <- outcome
		}(e)
	}

	go func() {
		b.wg.Wait()
		cancel()
		close(b.results)
		close(b.done)
	}()

	return b, nil
}

// run executes a single task and always produces its outcome
func (s *Scheduler) run(ctx context.Context, task *tasks.Task) Outcome {
	handler, exists := s.handler(task.Kind)
	if !exists {
		slog.Error("handler not found", "task_id", task.ID, "kind", task.Kind)
		return s.record(Outcome{Task: task, Err: fmt.Errorf("%w: %q", ErrUnsupportedKind, task.Kind)})
	}

	// Acquire a worker slot
	if s.semaphore != nil {
		select {
		case s.semaphore <- struct{}{}:
			defer func() { <-s.semaphore }()
		case <-ctx.Done():
			return s.record(Outcome{Task: task, Err: ctx.Err()})
		}
	}
	if err := ctx.Err(); err != nil {
		return s.record(Outcome{Task: task, Err: err})
	}

	start := time.Now()
	value, err := s.withMetrics(handler)(ctx, task)
	outcome := Outcome{Task: task, Value: value, Err: err, Duration: time.Since(start)}

	if err != nil {
		slog.Warn("task failed", "task_id", task.ID, "kind", task.Kind, "error", err)
	} else {
		slog.Debug("task completed", "task_id", task.ID, "kind", task.Kind, "duration", outcome.Duration)
	}

	return s.record(outcome)
}

// withMetrics wraps a handler with metrics collection and panic recovery
func (s *Scheduler) withMetrics(handler HandlerFunc) HandlerFunc {
	return func(ctx context.Context, task *tasks.Task) (value any, err error) {
		start := time.Now()

		// Update running gauge
		s.metrics.tasksRunning.WithLabelValues(task.Kind).Inc()
		s.metrics.workersActive.Inc()
		defer func() {
			s.metrics.tasksRunning.WithLabelValues(task.Kind).Dec()
			s.metrics.workersActive.Dec()
			s.metrics.taskDuration.WithLabelValues(task.Kind).Observe(time.Since(start).Seconds())
		}()

		defer func() {
			if r := recover(); r != nil {
				value, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
		}()

		return handler(ctx, task)
	}
}

func (s *Scheduler) record(o Outcome) Outcome {
	s.metrics.tasksCompleted.WithLabelValues(o.Task.Kind, o.Status()).Inc()
	return o
}
