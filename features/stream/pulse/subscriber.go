package pulse

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	streamopts "goa.design/pulse/streaming/options"

	"goa.design/uistream/features/stream/pulse/clients/pulse"
	"goa.design/uistream/runtime/uistream/protocol"
)

type (
	// SubscriberOptions configures a Subscriber.
	SubscriberOptions struct {
		// Client is the Pulse client used to read streams. Required.
		Client pulse.Client
		// StreamID derives the Pulse stream name from a message id. Defaults
		// to StreamName.
		StreamID func(messageID string) string
		// SinkPrefix prefixes the consumer group names. Defaults to
		// "uistream_follower".
		SinkPrefix string
		// Buffer is the capacity of the event channel. Defaults to 64.
		Buffer int
	}

	// Subscriber follows mirrored chat streams from the first event.
	Subscriber struct {
		client   pulse.Client
		streamID func(string) string
		prefix   string
		buffer   int
	}
)

// NewSubscriber returns a Subscriber. opts.Client is required.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	s := &Subscriber{client: opts.Client, streamID: StreamName, prefix: "uistream_follower", buffer: 64}
	if opts.StreamID != nil {
		s.streamID = opts.StreamID
	}
	if opts.SinkPrefix != "" {
		s.prefix = opts.SinkPrefix
	}
	if opts.Buffer > 0 {
		s.buffer = opts.Buffer
	}
	return s, nil
}

// Subscribe replays the stream of messageID from its oldest entry and keeps
// following it. Each call uses its own consumer group so every follower sees
// every event. The events channel is closed after Done, when ctx is canceled
// or when the Pulse sink closes; at most one error is sent on errs before it
// is closed. cancel stops the subscription and releases the consumer.
func (s *Subscriber) Subscribe(ctx context.Context, messageID string) (events <-chan protocol.Event, errs <-chan error, cancel context.CancelFunc, err error) {
	str, err := s.client.Stream(s.streamID(messageID))
	if err != nil {
		return nil, nil, nil, err
	}
	name := fmt.Sprintf("%s_%s", s.prefix, uuid.NewString())
	sink, err := str.NewSink(ctx, name, streamopts.WithSinkStartAtOldest())
	if err != nil {
		return nil, nil, nil, err
	}
	out := make(chan protocol.Event, s.buffer)
	errc := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go consume(runCtx, sink, out, errc)
	return out, errc, func() {
		stop()
		sink.Close(context.Background())
	}, nil
}

func consume(ctx context.Context, sink pulse.Sink, out chan<- protocol.Event, errs chan<- error) {
	defer close(out)
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			decoded, err := decodeEnvelope(ev.Payload)
			if err != nil {
				errs <- fmt.Errorf("pulse decode payload: %w", err)
				return
			}
			select {
			case out <- decoded:
			case <-ctx.Done():
				return
			}
			if err := sink.Ack(ctx, ev); err != nil {
				errs <- fmt.Errorf("pulse ack: %w", err)
				return
			}
			if _, done := decoded.(protocol.Done); done {
				return
			}
		}
	}
}
