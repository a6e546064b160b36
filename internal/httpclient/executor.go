package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// RequestExecutor performs the network call for a request and returns the
// raw, unconsumed response. The caller owns the response body.
type RequestExecutor interface {
	Execute(ctx context.Context, req *Request, creds *Credentials) (*http.Response, error)
}

// PooledExecutor executes requests through one shared, pooled http.Client.
// It is safe for concurrent use.
type PooledExecutor struct {
	client         *http.Client
	defaultTimeout time.Duration
}

// NewPooledExecutor creates an executor owning its own connection pool
func NewPooledExecutor(config *Config) *PooledExecutor {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}

	return &PooledExecutor{
		client:         &http.Client{Transport: transport},
		defaultTimeout: config.DefaultTimeout,
	}
}

// Close releases idle pooled connections
func (e *PooledExecutor) Close() {
	e.client.CloseIdleConnections()
}

// Execute implements RequestExecutor.
func (e *PooledExecutor) Execute(ctx context.Context, req *Request, creds *Credentials) (*http.Response, error) {
	method, err := req.NormalizedMethod()
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodGet:
		return e.do(ctx, http.MethodGet, req, nil, creds)
	case MethodPost:
		return e.do(ctx, http.MethodPost, req, req.Body, creds)
	case MethodPut:
		return e.do(ctx, http.MethodPut, req, req.Body, creds)
	case MethodDelete:
		return e.do(ctx, http.MethodDelete, req, req.Body, creds)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
}

func (e *PooledExecutor) do(ctx context.Context, method string, req *Request, body []byte, creds *Credentials) (*http.Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	target, err := withQuery(req.URL, creds)
	if err != nil {
		cancel()
		return nil, err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if creds != nil {
		for k, v := range creds.Header {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s failed: %w", method, req.URL, err)
	}

	// The timeout must keep covering the body read, so it ends on Close.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func withQuery(rawURL string, creds *Credentials) (string, error) {
	if creds == nil || len(creds.Query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, v := range creds.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
