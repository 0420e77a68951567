// Package builder tracks the open text and reasoning blocks of one UI message
// stream and produces well-formed lifecycle events for them.
//
// A Builder is created for a single stream, owned by the goroutine driving that
// stream, and discarded when the stream ends. It is not safe for concurrent
// use. Operations never fail: closing a block that is not open, or appending
// to one, is a silent no-op reported through the boolean result.
package builder

import (
	"github.com/google/uuid"

	"goa.design/uistream/runtime/uistream/protocol"
)

type (
	// Builder holds the per-stream block state.
	Builder struct {
		messageID   string
		newID       func() string
		textID      string
		reasoningID string
	}

	// Option configures a Builder.
	Option func(*Builder)
)

// WithMessageID sets the message identifier carried by the Start event.
// Defaults to a random UUID.
func WithMessageID(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.messageID = id
		}
	}
}

// WithIDGenerator sets the function used to allocate block identifiers. The
// function must never return the same value twice for one Builder. Defaults to
// random UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New returns a Builder with no open block.
func New(opts ...Option) *Builder {
	b := &Builder{newID: uuid.NewString}
	for _, o := range opts {
		o(b)
	}
	if b.messageID == "" {
		b.messageID = uuid.NewString()
	}
	return b
}

// MessageID returns the identifier carried by the Start event.
func (b *Builder) MessageID() string { return b.messageID }

// TextOpen reports whether a text block is open.
func (b *Builder) TextOpen() bool { return b.textID != "" }

// ReasoningOpen reports whether a reasoning block is open.
func (b *Builder) ReasoningOpen() bool { return b.reasoningID != "" }

// Start returns the event that opens the stream.
func (b *Builder) Start() protocol.Start {
	return protocol.Start{MessageID: b.messageID}
}

// OpenText allocates a new text block and returns its start event. Callers
// must close any open text block first; OpenText replaces the tracked id
// unconditionally.
func (b *Builder) OpenText() protocol.TextStart {
	b.textID = b.newID()
	return protocol.TextStart{ID: b.textID}
}

// TextDelta returns a delta for the open text block. ok is false, and nothing
// should be emitted, when no text block is open.
func (b *Builder) TextDelta(content string) (ev protocol.TextDelta, ok bool) {
	if b.textID == "" {
		return protocol.TextDelta{}, false
	}
	return protocol.TextDelta{ID: b.textID, Delta: content}, true
}

// CloseText closes the open text block. ok is false when none is open.
func (b *Builder) CloseText() (ev protocol.TextEnd, ok bool) {
	if b.textID == "" {
		return protocol.TextEnd{}, false
	}
	ev = protocol.TextEnd{ID: b.textID}
	b.textID = ""
	return ev, true
}

// OpenReasoning allocates a new reasoning block and returns its start event.
// Callers must close any open reasoning block first.
func (b *Builder) OpenReasoning() protocol.ReasoningStart {
	b.reasoningID = b.newID()
	return protocol.ReasoningStart{ID: b.reasoningID}
}

// ReasoningDelta returns a reasoning delta. A non-empty override keys the
// event by that id instead of the open block, whether or not any block is
// open, and leaves the open block untouched. Without an override ok is false
// when no reasoning block is open.
func (b *Builder) ReasoningDelta(content, override string) (ev protocol.ReasoningDelta, ok bool) {
	id := override
	if id == "" {
		id = b.reasoningID
	}
	if id == "" {
		return protocol.ReasoningDelta{}, false
	}
	return protocol.ReasoningDelta{ID: id, Delta: content}, true
}

// CloseReasoning closes the open reasoning block. ok is false when none is
// open.
func (b *Builder) CloseReasoning() (ev protocol.ReasoningEnd, ok bool) {
	if b.reasoningID == "" {
		return protocol.ReasoningEnd{}, false
	}
	ev = protocol.ReasoningEnd{ID: b.reasoningID}
	b.reasoningID = ""
	return ev, true
}

// Finish returns the logical completion event. It does not change state.
func (b *Builder) Finish() protocol.Finish { return protocol.Finish{} }

// Done returns the terminal sentinel. It does not change state.
func (b *Builder) Done() protocol.Done { return protocol.Done{} }
