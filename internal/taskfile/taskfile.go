// Package taskfile loads batches of tasks from YAML files.
//
// A batch file looks like:
//
//	tasks:
//	  - id: users
//	    name: list users
//	    kind: http
//	    payload:
//	      method: GET
//	      url: https://api.example.com/users
//	      headers:
//	        Accept: application/json
//	      timeout: 5s
//	  - kind: delay
//	    payload: 250ms
package taskfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/pipedsl/internal/httpclient"
	"github.com/yourusername/pipedsl/pkg/tasks"
)

// ErrNoKind is returned for an entry without a kind.
var ErrNoKind = errors.New("task entry has no kind")

// PayloadDecoder turns the raw payload node of one kind into its Go value
type PayloadDecoder func(node *yaml.Node) (any, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]PayloadDecoder{
		tasks.KindHTTP:  decodeHTTP,
		tasks.KindDelay: decodeDelay,
	}
)

// RegisterDecoder registers the payload decoder for a task kind.
func RegisterDecoder(kind string, d PayloadDecoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[kind] = d
}

func decoderFor(kind string) (PayloadDecoder, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	d, ok := decoders[kind]
	return d, ok
}

type file struct {
	Tasks []entry `yaml:"tasks"`
}

type entry struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Kind    string    `yaml:"kind"`
	Payload yaml.Node `yaml:"payload"`
}

type httpPayload struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Timeout yaml.Node         `yaml:"timeout"`
}

// Load reads and parses a batch file
func Load(path string) ([]*tasks.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	list, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Parse decodes a batch document. Entries without an id get a random UUID.
// Payloads of kinds without a registered decoder are kept as decoded YAML.
func Parse(data []byte) ([]*tasks.Task, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid task file: %w", err)
	}

	list := make([]*tasks.Task, 0, len(f.Tasks))
	for i, e := range f.Tasks {
		if e.Kind == "" {
			return nil, fmt.Errorf("task #%d: %w", i+1, ErrNoKind)
		}

		task := &tasks.Task{ID: e.ID, Name: e.Name, Kind: e.Kind}
		if task.ID == "" {
			task.ID = uuid.NewString()
		}

		payload, err := decodePayload(e.Kind, &e.Payload)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", task.ID, err)
		}
		task.Payload = payload

		list = append(list, task)
	}

	return list, nil
}

func decodePayload(kind string, node *yaml.Node) (any, error) {
	if node.IsZero() || node.Tag == "!!null" {
		return nil, nil
	}

	if d, ok := decoderFor(kind); ok {
		return d(node)
	}

	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return raw, nil
}

func decodeHTTP(node *yaml.Node) (any, error) {
	var p httpPayload
	if err := node.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid http payload: %w", err)
	}

	timeout, err := parseDuration(&p.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid http timeout: %w", err)
	}

	req := &httpclient.Request{
		Method:  p.Method,
		URL:     p.URL,
		Headers: p.Headers,
		Timeout: timeout,
	}
	if p.Body != "" {
		req.Body = []byte(p.Body)
	}
	return req, nil
}

func decodeDelay(node *yaml.Node) (any, error) {
	d, err := parseDuration(node)
	if err != nil {
		return nil, fmt.Errorf("invalid delay: %w", err)
	}
	return d, nil
}

// parseDuration accepts Go durations ("1.5s") and plain numbers of seconds.
func parseDuration(node *yaml.Node) (time.Duration, error) {
	if node.IsZero() || node.Tag == "!!null" {
		return 0, nil
	}
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("expected a scalar, got %q", node.Tag)
	}

	switch node.Tag {
	case "!!int", "!!float":
		seconds, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return 0, err
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(node.Value)
}
