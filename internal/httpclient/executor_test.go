package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

type seenRequest struct {
	method string
	body   string
	header http.Header
	query  map[string][]string
}

func newRecordingServer(t *testing.T) (*httptest.Server, func() seenRequest) {
	t.Helper()

	var mu sync.Mutex
	var last seenRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		last = seenRequest{method: r.Method, body: string(data), header: r.Header.Clone(), query: r.URL.Query()}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"method":"` + r.Method + `"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestPooledExecutorMethodDispatch(t *testing.T) {
	srv, seen := newRecordingServer(t)
	executor := NewPooledExecutor(nil)
	defer executor.Close()

	cases := []struct {
		method   string
		want     string
		wantBody string
	}{
		{"GET", http.MethodGet, ""},
		{"get", http.MethodGet, ""},
		{"Post", http.MethodPost, "payload"},
		{"put", http.MethodPut, "payload"},
		{"DELETE", http.MethodDelete, "payload"},
	}

	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			req := &Request{Method: tc.method, URL: srv.URL, Body: []byte("payload"), Timeout: 5 * time.Second}
			resp, err := executor.Execute(context.Background(), req, nil)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			resp.Body.Close()

			got := seen()
			if got.method != tc.want {
				t.Errorf("expected %s, server saw %s", tc.want, got.method)
			}
			if got.body != tc.wantBody {
				t.Errorf("expected body %q, server saw %q", tc.wantBody, got.body)
			}
		})
	}
}

func TestPooledExecutorUnsupportedMethod(t *testing.T) {
	executor := NewPooledExecutor(nil)
	_, err := executor.Execute(context.Background(), &Request{Method: "PATCH", URL: "http://127.0.0.1:1"}, nil)
	if !errors.Is(err, tasks.ErrNotImplemented) {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func TestPooledExecutorMergesCredentials(t *testing.T) {
	srv, seen := newRecordingServer(t)
	executor := NewPooledExecutor(nil)

	req := &Request{
		Method:  "GET",
		URL:     srv.URL + "/items?page=2",
		Headers: map[string]string{"Accept": "application/json"},
	}
	creds := &Credentials{
		Header: map[string]string{"Authorization": "Bearer token"},
		Query:  map[string]string{"api_key": "k1"},
	}

	resp, err := executor.Execute(context.Background(), req, creds)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	resp.Body.Close()

	got := seen()
	if got.header.Get("Authorization") != "Bearer token" {
		t.Errorf("credential header missing: %v", got.header)
	}
	if got.header.Get("Accept") != "application/json" {
		t.Errorf("request header missing: %v", got.header)
	}
	if got.query["api_key"][0] != "k1" || got.query["page"][0] != "2" {
		t.Errorf("unexpected query %v", got.query)
	}
	if _, ok := req.Headers["Authorization"]; ok {
		t.Error("request must not be mutated by credentials")
	}
	if req.URL != srv.URL+"/items?page=2" {
		t.Errorf("request url mutated: %s", req.URL)
	}
}

func TestPooledExecutorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	executor := NewPooledExecutor(nil)
	_, err := executor.Execute(context.Background(), &Request{Method: "GET", URL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPooledExecutorTimeoutCoversBodyRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("chunk"))
	}))
	defer srv.Close()

	executor := NewPooledExecutor(nil)
	resp, err := executor.Execute(context.Background(), &Request{Method: "GET", URL: srv.URL, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Body is still readable after Execute returned
	typed, err := ContentTypeHandler{}.Handle(context.Background(), resp)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := typed.(*TextResponse); *text.Body != "chunk" {
		t.Errorf("unexpected body %q", *text.Body)
	}
}
