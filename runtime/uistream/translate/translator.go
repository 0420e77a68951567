// Package translate turns the incremental output of an agent into UI message
// stream protocol events.
//
// A Translator maps one model.Item at a time to zero or more protocol events,
// driving a builder.Builder to keep block identifiers consistent. Run wraps a
// Translator with the stream lifecycle: it emits Start, pulls items from a
// model.Streamer one by one, reports upstream failures as a single Error event
// and always terminates the stream with Finish and Done.
package translate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/uistream/builder"
	"goa.design/uistream/runtime/uistream/protocol"
)

// UsageDataName is the CustomData name used to report token usage.
const UsageDataName = "usage"

// Translator converts agent stream items into protocol events for a single
// stream. It is not safe for concurrent use.
type Translator struct {
	b *builder.Builder
	// toolNames maps tool call ids to the names announced by
	// ToolCallNameDelta items.
	toolNames map[string]string
}

// New returns a Translator driving b. A nil b is replaced with a Builder using
// default identifiers.
func New(b *builder.Builder) *Translator {
	if b == nil {
		b = builder.New()
	}
	return &Translator{b: b, toolNames: make(map[string]string)}
}

// Builder returns the builder driven by the translator.
func (t *Translator) Builder() *builder.Builder { return t.b }

// Translate returns the events for item, in emission order. Unknown item kinds
// yield no events.
func (t *Translator) Translate(item model.Item) []protocol.Event {
	switch it := item.(type) {
	case model.ToolResult:
		return []protocol.Event{toolOutput(it)}
	case model.TextDelta:
		return t.text(it.Text)
	case model.ToolCall:
		return []protocol.Event{t.toolInput(it)}
	case model.ToolCallNameDelta:
		t.toolNames[it.ID] = it.Name
		return []protocol.Event{protocol.ToolInputStart{ToolCallID: it.ID, ToolName: it.Name}}
	case model.ToolCallArgumentsDelta:
		return []protocol.Event{protocol.ToolInputDelta{ToolCallID: it.ID, InputTextDelta: it.Delta}}
	case model.Reasoning:
		return t.reasoning(it)
	case model.ReasoningDelta:
		if ev, ok := t.b.ReasoningDelta(it.Text, it.ID); ok {
			return []protocol.Event{ev}
		}
		return nil
	case model.Final:
		if ev, ok := t.b.CloseText(); ok {
			return []protocol.Event{ev}
		}
		return nil
	case model.FinalResponse:
		return []protocol.Event{protocol.CustomData{Name: UsageDataName, Data: it.Usage}}
	default:
		return nil
	}
}

// text closes any open reasoning block, since providers interleave thinking
// and answer text without an explicit boundary, then appends to the text
// block, opening one if needed.
func (t *Translator) text(content string) []protocol.Event {
	evs := make([]protocol.Event, 0, 3)
	if ev, ok := t.b.CloseReasoning(); ok {
		evs = append(evs, ev)
	}
	if !t.b.TextOpen() {
		evs = append(evs, t.b.OpenText())
	}
	if ev, ok := t.b.TextDelta(content); ok {
		evs = append(evs, ev)
	}
	return evs
}

func (t *Translator) reasoning(it model.Reasoning) []protocol.Event {
	evs := make([]protocol.Event, 0, len(it.Fragments)+2)
	if ev, ok := t.b.CloseReasoning(); ok {
		evs = append(evs, ev)
	}
	evs = append(evs, t.b.OpenReasoning())
	for _, f := range it.Fragments {
		if ev, ok := t.b.ReasoningDelta(f, ""); ok {
			evs = append(evs, ev)
		}
	}
	return evs
}

func (t *Translator) toolInput(it model.ToolCall) protocol.Event {
	name := it.Name
	if name == "" {
		name = t.toolNames[it.ID]
	}
	args := bytes.TrimSpace(it.Arguments)
	if len(args) == 0 {
		args = []byte("{}")
	}
	if !json.Valid(args) {
		raw, _ := json.Marshal(string(it.Arguments))
		return protocol.ToolInputError{
			ToolCallID: it.ID,
			ToolName:   name,
			Input:      raw,
			ErrorText:  fmt.Sprintf("tool %q input is not valid JSON", name),
		}
	}
	return protocol.ToolInputAvailable{ToolCallID: it.ID, ToolName: name, Input: json.RawMessage(args)}
}

func toolOutput(it model.ToolResult) protocol.Event {
	if it.Error != "" {
		return protocol.ToolOutputError{ToolCallID: it.ToolCallID, ErrorText: it.Error}
	}
	return protocol.ToolOutputAvailable{ToolCallID: it.ToolCallID, Output: jsonValue(it.Output)}
}

// jsonValue returns raw when it holds valid JSON, null when empty, and raw
// encoded as a JSON string otherwise.
func jsonValue(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	s, _ := json.Marshal(string(raw))
	return s
}
