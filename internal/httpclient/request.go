package httpclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/pipedsl/pkg/tasks"
)

// Supported HTTP verbs
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// ErrUnsupportedMethod is returned for any verb outside GET/POST/PUT/DELETE.
var ErrUnsupportedMethod = fmt.Errorf("unsupported method: %w", tasks.ErrNotImplemented)

// Request describes a single HTTP call. It is the payload of "http" tasks.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
}

// NormalizedMethod returns the upper-cased verb or ErrUnsupportedMethod.
func (r *Request) NormalizedMethod() (string, error) {
	method := strings.ToUpper(r.Method)
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return method, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, r.Method)
}
