package translate

import (
	"context"
	"sync"

	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/agent/telemetry"
	"goa.design/uistream/runtime/uistream/builder"
	"goa.design/uistream/runtime/uistream/protocol"
)

type (
	// Sink delivers protocol events to a client transport (SSE response, Pulse
	// stream, test buffer). Send is called from the single goroutine driving a
	// stream, in emission order. An error means the transport can no longer
	// accept events and aborts the stream.
	Sink interface {
		Send(ctx context.Context, event protocol.Event) error
	}

	// SinkFunc adapts a function to the Sink interface.
	SinkFunc func(ctx context.Context, event protocol.Event) error

	// Collector is a Sink that keeps every event in memory.
	Collector struct {
		mu     sync.Mutex
		events []protocol.Event
	}

	// multiSink forwards events to a primary sink and to best-effort mirrors.
	multiSink struct {
		logger  telemetry.Logger
		primary Sink
		mirrors []Sink
		failed  []bool
	}
)

// Send calls f(ctx, event).
func (f SinkFunc) Send(ctx context.Context, event protocol.Event) error { return f(ctx, event) }

// Send records event.
func (c *Collector) Send(_ context.Context, event protocol.Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Event(nil), c.events...)
}

// NewMultiSink returns a Sink that sends every event to primary and then to
// each mirror. Only primary errors are returned. A mirror that fails is logged
// and skipped for the remainder of the stream.
func NewMultiSink(logger telemetry.Logger, primary Sink, mirrors ...Sink) Sink {
	if len(mirrors) == 0 {
		return primary
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &multiSink{
		logger:  logger,
		primary: primary,
		mirrors: mirrors,
		failed:  make([]bool, len(mirrors)),
	}
}

func (m *multiSink) Send(ctx context.Context, event protocol.Event) error {
	if err := m.primary.Send(ctx, event); err != nil {
		return err
	}
	for i, mirror := range m.mirrors {
		if m.failed[i] {
			continue
		}
		if err := mirror.Send(ctx, event); err != nil {
			m.failed[i] = true
			m.logger.Warn(ctx, "stream mirror failed, detaching", "mirror", i, "event", string(event.Type()), "err", err)
		}
	}
	return nil
}

// Events runs src through a fresh Translator over b into a Collector and
// returns the collected events together with the Run error.
func Events(ctx context.Context, b *builder.Builder, src model.Streamer, opts ...Option) ([]protocol.Event, error) {
	var c Collector
	err := Run(ctx, New(b), src, &c, opts...)
	return c.Events(), err
}
