// Package client talks to a running gateway and reads its streams.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatgate/config"
	"chatgate/model"
)

// ErrNoResponse is wrapped by every error that means the gateway produced
// no stream.
var ErrNoResponse = errors.New("no response produced")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Chat posts a conversation to one of the UI-stream routes.
func (c *Client) Chat(ctx context.Context, route model.Route, req model.ChatRouteRequest) (*EventReader, error) {
	if req.Messages == nil {
		req.Messages = []model.Message{}
	}
	resp, err := c.post(ctx, string(route), req)
	if err != nil {
		return nil, err
	}
	return NewEventReader(resp.Body), nil
}

// Tasks asks the tasks route for a task list and returns a reader over the
// raw JSON text.
func (c *Client) Tasks(ctx context.Context, prompt string) (*TextReader, error) {
	resp, err := c.post(ctx, string(model.RouteTasks), model.TasksRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return &TextReader{body: resp.Body, buf: make([]byte, 4096)}, nil
}

// Health checks that the gateway is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Client] POST %s (%d bytes)", path, len(payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, statusMessage(resp))
	}
	return resp, nil
}

// statusMessage prefers the gateway's {"error": ...} envelope over the bare
// status line.
func statusMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, envelope.Error)
	}
	return resp.Status
}

// =============================================================================
// EVENT READER
// =============================================================================

// EventReader parses a UI message stream one event at a time.
type EventReader struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	current model.UIEvent
	done    bool
	err     error
}

func NewEventReader(body io.ReadCloser) *EventReader {
	return &EventReader{body: body, reader: bufio.NewReader(body)}
}

// Next advances to the next event. It returns false at the terminator, at
// end of input or on error.
func (r *EventReader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err != io.EOF {
				r.err = fmt.Errorf("failed to read stream: %w", err)
			}
			r.done = true
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Blank separators, comments and other SSE fields.
			if err == io.EOF {
				r.done = true
				return false
			}
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			r.done = true
			return false
		}

		var ev model.UIEvent
		if jerr := json.Unmarshal([]byte(data), &ev); jerr != nil {
			r.err = fmt.Errorf("failed to decode event %q: %w", data, jerr)
			return false
		}
		r.current = ev
		return true
	}
}

func (r *EventReader) Current() model.UIEvent { return r.current }

func (r *EventReader) Err() error { return r.err }

func (r *EventReader) Close() error { return r.body.Close() }

// =============================================================================
// TEXT READER
// =============================================================================

// TextReader yields raw text chunks from a plain streaming response.
type TextReader struct {
	body io.ReadCloser
	buf  []byte
	text string
	err  error
	done bool
}

func (r *TextReader) Next() bool {
	if r.done {
		return false
	}
	for {
		n, err := r.body.Read(r.buf)
		if n > 0 {
			r.text = string(r.buf[:n])
			if err != nil && err != io.EOF {
				r.err = fmt.Errorf("failed to read stream: %w", err)
				r.done = true
			}
			return true
		}
		if err != nil {
			if err != io.EOF {
				r.err = fmt.Errorf("failed to read stream: %w", err)
			}
			r.done = true
			return false
		}
	}
}

// Text returns the chunk read by the last successful Next.
func (r *TextReader) Text() string { return r.text }

func (r *TextReader) Err() error { return r.err }

func (r *TextReader) Close() error { return r.body.Close() }
