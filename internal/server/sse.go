package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stream event payloads. Each frame carries exactly one of content,
// done, or error.
type contentEvent struct {
	Content string `json:"content"`
}

type doneEvent struct {
	Done bool `json:"done"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// sseEncoder frames stream events as server-sent events
// (`data: {json}\n\n`), flushing after every frame so the client sees
// fragments incrementally. Frame order matches call order.
type sseEncoder struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEEncoder commits the response to the event-stream content type.
func newSSEEncoder(w http.ResponseWriter) *sseEncoder {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)
	return &sseEncoder{w: w, flusher: flusher}
}

// Content emits one text fragment frame.
func (e *sseEncoder) Content(text string) error {
	return e.write(contentEvent{Content: text})
}

// Done emits the terminal completion frame.
func (e *sseEncoder) Done() error {
	return e.write(doneEvent{Done: true})
}

// Error emits the terminal error frame.
func (e *sseEncoder) Error(message string) error {
	return e.write(errorEvent{Error: message})
}

func (e *sseEncoder) write(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
