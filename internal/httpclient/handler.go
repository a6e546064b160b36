package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

var (
	// ErrDecode is returned when a body cannot be decoded as its content type declares.
	ErrDecode = errors.New("response decode failed")

	// ErrNilResponse is returned when a handler yields no response and no error.
	ErrNilResponse = errors.New("response handler returned no response")
)

const jsonContentType = "application/json"

// ResponseHandler interprets a raw transport response. Handlers may close
// the body; Client releases it afterwards either way.
type ResponseHandler interface {
	Handle(ctx context.Context, resp *http.Response) (TypedResponse, error)
}

// ResponseHandlerFunc adapts a function to ResponseHandler.
type ResponseHandlerFunc func(ctx context.Context, resp *http.Response) (TypedResponse, error)

// Handle calls f.
func (f ResponseHandlerFunc) Handle(ctx context.Context, resp *http.Response) (TypedResponse, error) {
	return f(ctx, resp)
}

// ContentTypeHandler picks JSON or text decoding from the content-type header.
type ContentTypeHandler struct{}

// Handle decodes resp into a JSONResponse when its content type mentions
// application/json, and into a TextResponse otherwise.
func (ContentTypeHandler) Handle(ctx context.Context, resp *http.Response) (TypedResponse, error) {
	defer releaseBody(resp)

	meta := Response{
		Headers:    flattenHeaders(resp.Header),
		StatusCode: resp.StatusCode,
	}

	if IsJSON(headerValue(resp.Header, "Content-Type")) {
		body, err := decodeJSON(resp.Body)
		if err != nil {
			return nil, err
		}
		return &JSONResponse{Response: meta, Body: body}, nil
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return &TextResponse{Response: meta}, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	text := string(data)
	return &TextResponse{Response: meta, Body: &text}, nil
}

// IsJSON reports whether a content-type value declares a JSON body.
// Parameters such as "; charset=utf-8" are tolerated.
func IsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), jsonContentType)
}

func decodeJSON(body io.Reader) (any, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	// An empty JSON body decodes to null
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	// Numbers stay json.Number so large integer ids survive
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrDecode)
	}
	return value, nil
}

// headerValue looks up a header without relying on canonical key form.
func headerValue(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	for k, values := range h {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, values := range h {
		headers[k] = strings.Join(values, ", ")
	}
	return headers
}

// releaseBody drains and closes the body so the connection returns to the pool.
func releaseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// onceBody closes the wrapped body at most once; reads after Close see EOF.
type onceBody struct {
	io.ReadCloser
	once   sync.Once
	closed bool
	err    error
}

func (b *onceBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, io.EOF
	}
	return b.ReadCloser.Read(p)
}

func (b *onceBody) Close() error {
	b.once.Do(func() {
		b.closed = true
		b.err = b.ReadCloser.Close()
	})
	return b.err
}
