package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chatgate/model"
)

// UIStreamHeader marks a response as a UI message stream.
const UIStreamHeader = "x-vercel-ai-ui-message-stream"

// Emitter receives UI stream events in order.
type Emitter interface {
	Emit(ev model.UIEvent) error
}

// EventWriter writes UI events as Server-Sent Events. After the first write
// error every further call returns that error without writing.
type EventWriter struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	err error
}

// NewEventWriter sends the stream headers and a 200 status.
func NewEventWriter(w http.ResponseWriter) *EventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(UIStreamHeader, "v1")
	w.WriteHeader(http.StatusOK)

	ew := &EventWriter{w: w, rc: http.NewResponseController(w)}
	ew.flush()
	return ew
}

func (e *EventWriter) Emit(ev model.UIEvent) error {
	if e.err != nil {
		return e.err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return e.write(data)
}

// Done writes the stream terminator.
func (e *EventWriter) Done() error {
	if e.err != nil {
		return e.err
	}
	return e.write([]byte("[DONE]"))
}

func (e *EventWriter) write(data []byte) error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		e.err = fmt.Errorf("failed to write event: %w", err)
		return e.err
	}
	e.flush()
	return nil
}

func (e *EventWriter) flush() {
	// Writers without flush support still deliver everything at the end.
	_ = e.rc.Flush()
}
