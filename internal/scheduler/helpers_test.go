package scheduler_test

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/yourusername/pipedsl/internal/httpclient"
)

type executorFunc func(ctx context.Context, req *httpclient.Request, creds *httpclient.Credentials) (*http.Response, error)

func (f executorFunc) Execute(ctx context.Context, req *httpclient.Request, creds *httpclient.Credentials) (*http.Response, error) {
	return f(ctx, req, creds)
}

func nopCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
