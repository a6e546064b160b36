package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all scheduler Prometheus metrics
type Metrics struct {
	// Counters
	tasksScheduled *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec

	// Gauges
	tasksRunning    *prometheus.GaugeVec
	workersActive   prometheus.Gauge
	workersCapacity prometheus.Gauge

	// Histograms
	taskDuration *prometheus.HistogramVec
}

// NewMetrics creates all scheduler metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_scheduled_total",
				Help: "Total number of tasks submitted in a batch",
			},
			[]string{"kind"},
		),
		tasksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_completed_total",
				Help: "Total number of task outcomes by status",
			},
			[]string{"kind", "status"},
		),
		tasksRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tasks_running",
				Help: "Current number of running tasks",
			},
			[]string{"kind"},
		),
		workersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "worker_pool_active",
				Help: "Number of busy worker slots",
			},
		),
		workersCapacity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "worker_pool_capacity",
				Help: "Total worker pool capacity, 0 when unbounded",
			},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.tasksScheduled,
		m.tasksCompleted,
		m.tasksRunning,
		m.workersActive,
		m.workersCapacity,
		m.taskDuration,
	)

	return m
}
