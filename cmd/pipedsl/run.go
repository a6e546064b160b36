package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yourusername/pipedsl/internal/httpclient"
	"github.com/yourusername/pipedsl/internal/scheduler"
	"github.com/yourusername/pipedsl/internal/taskfile"
	"github.com/yourusername/pipedsl/pkg/tasks"
)

var errTasksFailed = errors.New("one or more tasks failed")

var (
	workers     int
	failFast    bool
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run every task of a YAML batch file and print outcomes as they complete",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the task kinds this build can execute",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, cleanup := newScheduler(cmd, prometheus.NewRegistry())
		defer cleanup()
		for _, kind := range s.Kinds() {
			fmt.Fprintln(cmd.OutOrStdout(), kind)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&workers, "workers", 10, "max concurrently running tasks, 0 for unbounded (env PIPEDSL_WORKERS)")
	runCmd.Flags().BoolVar(&failFast, "fail-fast", false, "cancel the batch on the first failure (env PIPEDSL_FAIL_FAST)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address (env METRICS_ADDR)")
}

// outcomeRecord is one line of `run` output
type outcomeRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Duration string `json:"duration"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	list, err := taskfile.Load(args[0])
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	s, config, cleanup := newScheduler(cmd, reg)
	defer cleanup()

	addr := getEnv("METRICS_ADDR", "")
	if cmd.Flags().Changed("metrics-addr") {
		addr = metricsAddr
	}
	if addr != "" {
		go serveMetrics(addr, reg, config)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	batch, err := s.Schedule(ctx, list)
	if err != nil {
		return fmt.Errorf("failed to schedule batch: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	counts := make(map[string]int)
	start := time.Now()

	for task, o := range batch.All() {
		counts[o.Status()]++

		record := outcomeRecord{
			ID:       task.ID,
			Name:     task.Name,
			Kind:     task.Kind,
			Status:   o.Status(),
			Duration: o.Duration.String(),
			Result:   o.Value,
		}
		if o.Err != nil {
			record.Error = o.Err.Error()
		}
		if err := enc.Encode(record); err != nil {
			slog.Error("failed to write outcome", "task_id", task.ID, "error", err)
		}
	}

	slog.Info("batch finished",
		"tasks", batch.Len(),
		"completed", counts[tasks.StatusCompleted],
		"failed", counts[tasks.StatusFailed],
		"unsupported", counts[tasks.StatusUnsupported],
		"cancelled", counts[tasks.StatusCancelled],
		"elapsed", time.Since(start))

	if counts[tasks.StatusCompleted] != batch.Len() {
		return errTasksFailed
	}
	return nil
}

// newScheduler wires the scheduler and the http task kind from env and flags
func newScheduler(cmd *cobra.Command, reg prometheus.Registerer) (*scheduler.Scheduler, *scheduler.Config, func()) {
	config := &scheduler.Config{
		WorkerPoolSize: getEnvInt("PIPEDSL_WORKERS", 10),
		FailFast:       getEnvBool("PIPEDSL_FAIL_FAST", false),
		Registerer:     reg,
	}
	if cmd.Flags().Changed("workers") {
		config.WorkerPoolSize = workers
	}
	if cmd.Flags().Changed("fail-fast") {
		config.FailFast = failFast
	}

	httpConfig := httpclient.DefaultConfig()
	httpConfig.DefaultTimeout = getEnvDuration("PIPEDSL_HTTP_TIMEOUT", httpConfig.DefaultTimeout)
	httpConfig.MaxIdleConns = getEnvInt("PIPEDSL_MAX_IDLE_CONNS", httpConfig.MaxIdleConns)
	httpConfig.MaxIdleConnsPerHost = getEnvInt("PIPEDSL_MAX_IDLE_CONNS_PER_HOST", httpConfig.MaxIdleConnsPerHost)

	executor := httpclient.NewPooledExecutor(httpConfig)
	client := httpclient.NewClient(executor,
		httpclient.WithCredentialProvider(credentialProvider()),
		httpclient.WithMetrics(httpclient.NewMetrics(reg)),
	)

	s := scheduler.New(config)
	scheduler.Register(s, tasks.KindHTTP, client.HandleTask)
	scheduler.Register(s, tasks.KindDelay, scheduler.DelayHandler)

	return s, config, executor.Close
}

func credentialProvider() httpclient.CredentialProvider {
	if secret := os.Getenv("PIPEDSL_JWT_SECRET"); secret != "" {
		slog.Info("using jwt bearer credentials")
		return &httpclient.JWTBearer{
			Issuer: getEnv("PIPEDSL_JWT_ISSUER", "pipedsl"),
			Secret: []byte(secret),
			TTL:    getEnvDuration("PIPEDSL_JWT_TTL", time.Minute),
		}
	}
	if token := os.Getenv("PIPEDSL_BEARER_TOKEN"); token != "" {
		slog.Info("using static bearer token")
		return httpclient.BearerToken(token)
	}
	return httpclient.NoCredentials
}

func serveMetrics(addr string, reg *prometheus.Registry, config *scheduler.Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"version":   version,
			"workers":   config.WorkerPoolSize,
			"fail_fast": config.FailFast,
		})
	})

	slog.Info("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}
