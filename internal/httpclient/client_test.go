package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

func jsonExecutor(body string) *fakeExecutor {
	return &fakeExecutor{respond: func(req *Request) (*http.Response, error) {
		header := http.Header{"Content-Type": {"application/json; charset=utf-8"}}
		return cannedResponse(200, header, newTrackingBody(body)), nil
	}}
}

func TestClientExecuteJSON(t *testing.T) {
	executor := jsonExecutor(`{"id":7,"tags":["a"]}`)
	client := NewClient(executor)

	resp, err := client.Execute(context.Background(), &Request{Method: "GET", URL: "http://stub/users/7"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	jsonResp, ok := resp.(*JSONResponse)
	if !ok {
		t.Fatalf("expected *JSONResponse, got %T", resp)
	}
	want := map[string]any{"id": json.Number("7"), "tags": []any{"a"}}
	if !reflect.DeepEqual(jsonResp.Body, want) {
		t.Errorf("unexpected body %#v", jsonResp.Body)
	}
}

func TestClientMethodRouting(t *testing.T) {
	executor := jsonExecutor(`{}`)
	client := NewClient(executor)

	for _, method := range []string{"GET", "get", "Post", "pUt", "delete"} {
		if _, err := client.Execute(context.Background(), &Request{Method: method, URL: "http://stub"}); err != nil {
			t.Fatalf("%s failed: %v", method, err)
		}
	}

	want := []string{"GET", "GET", "POST", "PUT", "DELETE"}
	if !reflect.DeepEqual(executor.methods, want) {
		t.Errorf("expected %v, got %v", want, executor.methods)
	}
}

func TestClientUnsupportedMethod(t *testing.T) {
	executor := jsonExecutor(`{}`)
	client := NewClient(executor)

	_, err := client.Execute(context.Background(), &Request{Method: "PATCH", URL: "http://stub"})
	if !errors.Is(err, tasks.ErrNotImplemented) {
		t.Fatalf("expected not implemented, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("expected ErrUnsupportedMethod, got %v", err)
	}
	if executor.callCount() != 0 {
		t.Error("executor must not be called for an unsupported method")
	}
}

func TestClientNilRequest(t *testing.T) {
	client := NewClient(jsonExecutor(`{}`))
	if _, err := client.Execute(context.Background(), nil); !errors.Is(err, tasks.ErrMissingPayload) {
		t.Fatalf("expected ErrMissingPayload, got %v", err)
	}
}

func TestClientReleasesBodyOnce(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{"json", "application/json", `{"a":1}`, false},
		{"text", "text/plain", "plain", false},
		{"malformed json", "application/json", `{`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := newTrackingBody(tc.body)
			executor := &fakeExecutor{respond: func(req *Request) (*http.Response, error) {
				return cannedResponse(200, http.Header{"Content-Type": {tc.contentType}}, body), nil
			}}

			_, err := NewClient(executor).Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if n := body.closes.Load(); n != 1 {
				t.Errorf("expected exactly one close, got %d", n)
			}
		})
	}
}

func TestClientReleasesBodyForCustomHandler(t *testing.T) {
	body := newTrackingBody("ignored")
	executor := &fakeExecutor{respond: func(req *Request) (*http.Response, error) {
		return cannedResponse(201, nil, body), nil
	}}

	// Reads nothing and never closes
	statusOnly := ResponseHandlerFunc(func(ctx context.Context, resp *http.Response) (TypedResponse, error) {
		return &TextResponse{Response: Response{StatusCode: resp.StatusCode}}, nil
	})

	resp, err := NewClient(executor, WithResponseHandler(statusOnly)).
		Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Meta().StatusCode != 201 {
		t.Errorf("expected 201, got %d", resp.Meta().StatusCode)
	}
	if n := body.closes.Load(); n != 1 {
		t.Errorf("expected client to close the body once, got %d", n)
	}
}

func TestClientNilHandlerResponse(t *testing.T) {
	body := newTrackingBody("{}")
	executor := &fakeExecutor{respond: func(req *Request) (*http.Response, error) {
		return cannedResponse(200, nil, body), nil
	}}
	empty := ResponseHandlerFunc(func(context.Context, *http.Response) (TypedResponse, error) {
		return nil, nil
	})

	_, err := NewClient(executor, WithResponseHandler(empty)).
		Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})
	if !errors.Is(err, ErrNilResponse) {
		t.Fatalf("expected ErrNilResponse, got %v", err)
	}
	if n := body.closes.Load(); n != 1 {
		t.Errorf("expected body closed once, got %d", n)
	}
}

func TestClientPaddedMethodRejected(t *testing.T) {
	executor := jsonExecutor(`{}`)
	_, err := NewClient(executor).Execute(context.Background(), &Request{Method: " GET ", URL: "http://stub"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
	if executor.callCount() != 0 {
		t.Error("executor must not be called for a padded method")
	}
}

func TestClientCredentialProvider(t *testing.T) {
	executor := jsonExecutor(`{}`)

	var seen *Request
	provider := CredentialProviderFunc(func(ctx context.Context, req *Request) (*Credentials, error) {
		seen = req
		return &Credentials{Header: map[string]string{"X-Api-Key": "secret"}}, nil
	})
	client := NewClient(executor, WithCredentialProvider(provider))

	req := &Request{Method: "GET", URL: "http://stub"}
	if _, err := client.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if seen != req {
		t.Error("provider must receive the request being executed")
	}
	if got := executor.creds[0]; got == nil || got.Header["X-Api-Key"] != "secret" {
		t.Errorf("credentials not forwarded to executor: %+v", got)
	}
	if req.Headers != nil {
		t.Error("client must not mutate the request")
	}
}

func TestClientCredentialProviderFailure(t *testing.T) {
	executor := jsonExecutor(`{}`)
	boom := errors.New("vault unreachable")
	provider := CredentialProviderFunc(func(context.Context, *Request) (*Credentials, error) {
		return nil, boom
	})

	_, err := NewClient(executor, WithCredentialProvider(provider)).
		Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if executor.callCount() != 0 {
		t.Error("executor must not run when credentials fail")
	}
}

func TestClientTransportFailure(t *testing.T) {
	refused := errors.New("connection refused")
	executor := &fakeExecutor{respond: func(*Request) (*http.Response, error) {
		return nil, refused
	}}

	_, err := NewClient(executor).Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})
	if !errors.Is(err, refused) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientHandleTask(t *testing.T) {
	client := NewClient(jsonExecutor(`{"ok":true}`))
	task := &tasks.Task{ID: "t1", Kind: tasks.KindHTTP}

	value, err := client.HandleTask(context.Background(), task, &Request{Method: "GET", URL: "http://stub"})
	if err != nil {
		t.Fatalf("HandleTask failed: %v", err)
	}

	resp := value.(*JSONResponse)
	if resp.ExecutionTime == nil {
		t.Error("expected execution time to be stamped")
	}

	if _, err := client.HandleTask(context.Background(), task, nil); !errors.Is(err, tasks.ErrMissingPayload) {
		t.Errorf("expected ErrMissingPayload, got %v", err)
	}
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(jsonExecutor(`{}`), WithMetrics(metrics))

	client.Execute(context.Background(), &Request{Method: "get", URL: "http://stub"})
	client.Execute(context.Background(), &Request{Method: "GET", URL: "http://stub"})

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "200")); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.CollectAndCount(metrics.requestDuration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}
