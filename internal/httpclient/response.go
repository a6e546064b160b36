package httpclient

import (
	"time"
)

// TypedResponse is either a *TextResponse or a *JSONResponse.
type TypedResponse interface {
	Meta() *Response
}

// Response carries the fields shared by every interpreted response.
type Response struct {
	Headers    map[string]string `json:"headers"`
	StatusCode int               `json:"status_code"`

	// ExecutionTime is stamped by the caller of the client, not by the client.
	ExecutionTime *time.Duration `json:"execution_time,omitempty"`
}

// Meta returns the shared response fields.
func (r *Response) Meta() *Response {
	return r
}

// TextResponse is produced for every non-JSON content type.
type TextResponse struct {
	Response
	Body *string `json:"body"`
}

// JSONResponse holds a decoded JSON document of any shape.
type JSONResponse struct {
	Response
	Body any `json:"body"`
}

var (
	_ TypedResponse = (*TextResponse)(nil)
	_ TypedResponse = (*JSONResponse)(nil)
)
