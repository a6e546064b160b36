package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// trackingBody counts Close calls on a canned response body.
type trackingBody struct {
	io.Reader
	closes atomic.Int32
}

func (b *trackingBody) Close() error {
	b.closes.Add(1)
	return nil
}

func newTrackingBody(s string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(s)}
}

func cannedResponse(status int, header http.Header, body *trackingBody) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: body}
}

// fakeExecutor returns canned responses without touching the network.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []*Request
	methods []string
	creds   []*Credentials

	respond func(req *Request) (*http.Response, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, req *Request, creds *Credentials) (*http.Response, error) {
	method, err := req.NormalizedMethod()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.methods = append(f.methods, method)
	f.creds = append(f.creds, creds)
	f.mu.Unlock()

	return f.respond(req)
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
