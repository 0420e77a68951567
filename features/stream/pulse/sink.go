// Package pulse mirrors UI message streams to goa.design/pulse streams so
// that other processes can follow a chat response while it is produced. The
// mirror is best-effort: it is attached to the client stream through
// translate.NewMultiSink and never persists anything the client did not see.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/runtime/agent/telemetry"
	"goa.design/uistream/runtime/uistream/protocol"
)

type (
	// Options configures a Publisher.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client pulse.Client
		// StreamID derives the Pulse stream name from a message id. Defaults
		// to StreamName.
		StreamID func(messageID string) string
		// Now returns the publication timestamp. Defaults to time.Now.
		Now func() time.Time
		// Retention is how long a stream is kept after its sink is closed.
		// Defaults to DefaultRetention.
		Retention time.Duration
		// Logger reports failures of the deferred stream deletion. Defaults to
		// a no-op logger.
		Logger telemetry.Logger
	}

	// Publisher opens one mirror Sink per chat stream.
	Publisher struct {
		client    pulse.Client
		streamID  func(string) string
		now       func() time.Time
		retention time.Duration
		logger    telemetry.Logger
	}

	// Sink publishes the events of one chat stream to its Pulse stream.
	Sink struct {
		messageID string
		stream    pulse.Stream
		now       func() time.Time
		retention time.Duration
		logger    telemetry.Logger
		// done records that the done sentinel was published.
		done   bool
		closed bool
	}

	// envelope is the Pulse entry payload.
	envelope struct {
		// Type is the protocol event type.
		Type string `json:"type"`
		// MessageID is the id carried by the stream's start event.
		MessageID string `json:"message_id"`
		// Timestamp records when the event was published (UTC).
		Timestamp time.Time `json:"timestamp"`
		// Event is the protocol payload. It is absent for the done sentinel.
		Event json.RawMessage `json:"event,omitempty"`
	}
)

const (
	// DefaultRetention is the default time a mirrored stream remains
	// readable after the chat response ends.
	DefaultRetention = 10 * time.Minute

	// closeTimeout bounds the Redis calls made when a sink is closed.
	closeTimeout = 5 * time.Second
)

// StreamName returns the default Pulse stream name for a chat message.
func StreamName(messageID string) string {
	return fmt.Sprintf("chat/%s", messageID)
}

// NewPublisher returns a Publisher. opts.Client is required.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	p := &Publisher{
		client:    opts.Client,
		streamID:  StreamName,
		now:       time.Now,
		retention: DefaultRetention,
		logger:    telemetry.NewNoopLogger(),
	}
	if opts.StreamID != nil {
		p.streamID = opts.StreamID
	}
	if opts.Now != nil {
		p.now = opts.Now
	}
	if opts.Retention > 0 {
		p.retention = opts.Retention
	}
	if opts.Logger != nil {
		p.logger = opts.Logger
	}
	return p, nil
}

// Sink opens the Pulse stream for messageID and returns a sink publishing to
// it.
func (p *Publisher) Sink(messageID string) (*Sink, error) {
	if messageID == "" {
		return nil, errors.New("message id is required")
	}
	s, err := p.client.Stream(p.streamID(messageID))
	if err != nil {
		return nil, err
	}
	return &Sink{messageID: messageID, stream: s, now: p.now, retention: p.retention, logger: p.logger}, nil
}

// Send publishes event as one Pulse entry named after the event type.
func (s *Sink) Send(ctx context.Context, event protocol.Event) error {
	env := envelope{
		Type:      string(event.Type()),
		MessageID: s.messageID,
		Timestamp: s.now().UTC(),
	}
	_, done := event.(protocol.Done)
	if !done {
		payload, err := protocol.Marshal(event)
		if err != nil {
			return err
		}
		env.Event = payload
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal pulse envelope: %w", err)
	}
	if _, err := s.stream.Add(ctx, env.Type, body); err != nil {
		return err
	}
	if done {
		s.done = true
	}
	return nil
}

// Close ends the mirrored stream. If the done sentinel was never published,
// for example because the client went away mid-stream, Close publishes it so
// followers stop. The Pulse stream is then deleted once the retention period
// elapses; Close does not wait for the deletion. Close ignores ctx
// cancellation and returns the error of the done publication, if any.
func (s *Sink) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	ctx = context.WithoutCancel(ctx)
	var err error
	if !s.done {
		doneCtx, cancel := context.WithTimeout(ctx, closeTimeout)
		err = s.Send(doneCtx, protocol.Done{})
		cancel()
	}
	time.AfterFunc(s.retention, func() {
		destroyCtx, cancel := context.WithTimeout(ctx, closeTimeout)
		defer cancel()
		if err := s.stream.Destroy(destroyCtx); err != nil {
			s.logger.Warn(destroyCtx, "delete mirrored stream", "message_id", s.messageID, "err", err)
		}
	})
	return err
}

// decodeEnvelope returns the protocol event carried by a Pulse entry.
func decodeEnvelope(payload []byte) (protocol.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if env.Type == string(protocol.TypeDone) {
		return protocol.Done{}, nil
	}
	if len(env.Event) == 0 {
		return nil, fmt.Errorf("pulse entry %q has no event", env.Type)
	}
	return protocol.Unmarshal(env.Event)
}
