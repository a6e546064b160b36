package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// Client composes a RequestExecutor, a ResponseHandler and a
// CredentialProvider into one Execute call.
type Client struct {
	executor    RequestExecutor
	handler     ResponseHandler
	credentials CredentialProvider
	metrics     *Metrics
}

// Option is a functional option for NewClient
type Option func(*Client)

// WithResponseHandler replaces the default content-type based handler
func WithResponseHandler(h ResponseHandler) Option {
	return func(c *Client) { c.handler = h }
}

// WithCredentialProvider sets the provider consulted before every request
func WithCredentialProvider(p CredentialProvider) Option {
	return func(c *Client) { c.credentials = p }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client around executor
func NewClient(executor RequestExecutor, opts ...Option) *Client {
	c := &Client{
		executor:    executor,
		handler:     ContentTypeHandler{},
		credentials: NoCredentials,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = ContentTypeHandler{}
	}
	if c.credentials == nil {
		c.credentials = NoCredentials
	}
	return c
}

// Execute looks up credentials, performs the call and interprets the response.
func (c *Client) Execute(ctx context.Context, req *Request) (TypedResponse, error) {
	if req == nil {
		return nil, tasks.ErrMissingPayload
	}

	method, err := req.NormalizedMethod()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.execute(ctx, method, req)
	c.observe(method, resp, err, time.Since(start))

	return resp, err
}

func (c *Client) execute(ctx context.Context, method string, req *Request) (TypedResponse, error) {
	creds, err := c.credentials.Provide(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("credential provider failed: %w", err)
	}

	raw, err := c.executor.Execute(ctx, req, creds)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("executor returned no response for %s %s", method, req.URL)
	}
	if raw.Body != nil {
		raw.Body = &onceBody{ReadCloser: raw.Body}
	}
	defer releaseBody(raw)

	resp, err := c.handler.Handle(ctx, raw)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}

	slog.Debug("http request completed",
		"method", method,
		"url", req.URL,
		"status", resp.Meta().StatusCode)

	return resp, nil
}

func (c *Client) observe(method string, resp TypedResponse, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.Meta().StatusCode)
	}
	c.metrics.requests.WithLabelValues(method, code).Inc()
	c.metrics.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// HandleTask runs an "http" task. It has the payload-typed handler signature
// expected by scheduler.Register and stamps the response execution time.
func (c *Client) HandleTask(ctx context.Context, task *tasks.Task, req *Request) (any, error) {
	if req == nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, tasks.ErrMissingPayload)
	}

	start := time.Now()
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	resp.Meta().ExecutionTime = &elapsed
	return resp, nil
}
