// Package sse carries UI message stream events over Server-Sent Events.
package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"goa.design/uistream/runtime/uistream/protocol"
)

const (
	// ContentType is the media type of stream responses.
	ContentType = "text/event-stream"
	// StreamHeader tells clients which protocol version the body carries.
	StreamHeader = "x-vercel-ai-ui-message-stream"
	// StreamVersion is the protocol version written in StreamHeader.
	StreamVersion = "v1"
)

// Writer is a translate.Sink that frames each event as one SSE message on an
// HTTP response and flushes it immediately. The status line and headers are
// written with the first event. A Writer serves a single response and must
// not be used concurrently.
type Writer struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

// NewWriter returns a Writer for w.
func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{w: w, rc: http.NewResponseController(w)}
}

// Started reports whether the response headers have been written.
func (w *Writer) Started() bool { return w.started }

// Send writes event. It returns ctx.Err() without writing once the client is
// gone.
func (w *Writer) Send(ctx context.Context, event protocol.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := protocol.Frame(event)
	if err != nil {
		return err
	}
	if !w.started {
		h := w.w.Header()
		h.Set("Content-Type", ContentType)
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		h.Set(StreamHeader, StreamVersion)
		w.w.WriteHeader(http.StatusOK)
		w.started = true
	}
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := w.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}
