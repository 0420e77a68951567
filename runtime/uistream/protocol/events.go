// Package protocol defines the UI message stream protocol: the closed set of
// events delivered to a chat UI client while an assistant response is being
// produced, and their canonical wire encoding.
//
// A stream always begins with Start and ends with Finish followed by the Done
// sentinel. Text and reasoning content is delivered in blocks: a *Start event
// allocates an opaque block identifier that every subsequent *Delta and *End
// event of the same block reuses. Tool calls are correlated by the tool call
// identifier issued by the agent.
//
// Each event encodes to a single JSON object whose "type" field selects the
// variant; Done encodes to the literal [DONE]. See Marshal and Frame.
package protocol

import "encoding/json"

type (
	// Event is one protocol event. The set of implementations is closed; use a
	// type switch to access variant fields.
	Event interface {
		// Type returns the wire discriminant of the event.
		Type() EventType
		isEvent()
	}

	// EventType is the value of the "type" field on the wire.
	EventType string

	// Start opens the stream for one assistant message.
	Start struct {
		MessageID string `json:"messageId"`
	}

	// TextStart opens a text block.
	TextStart struct {
		ID string `json:"id"`
	}

	// TextDelta appends text to the open text block.
	TextDelta struct {
		ID    string `json:"id"`
		Delta string `json:"delta"`
	}

	// TextEnd closes a text block.
	TextEnd struct {
		ID string `json:"id"`
	}

	// ReasoningStart opens a reasoning block.
	ReasoningStart struct {
		ID string `json:"id"`
	}

	// ReasoningDelta appends text to a reasoning block.
	ReasoningDelta struct {
		ID    string `json:"id"`
		Delta string `json:"delta"`
	}

	// ReasoningEnd closes a reasoning block.
	ReasoningEnd struct {
		ID string `json:"id"`
	}

	// ToolInputStart announces a tool call before its input streams in.
	ToolInputStart struct {
		ToolCallID string `json:"toolCallId"`
		ToolName   string `json:"toolName"`
	}

	// ToolInputDelta carries a raw fragment of the tool input JSON text.
	ToolInputDelta struct {
		ToolCallID     string `json:"toolCallId"`
		InputTextDelta string `json:"inputTextDelta"`
	}

	// ToolInputAvailable carries the complete, parsed tool input.
	ToolInputAvailable struct {
		ToolCallID string          `json:"toolCallId"`
		ToolName   string          `json:"toolName"`
		Input      json.RawMessage `json:"input"`
	}

	// ToolInputError reports tool input that could not be parsed. Input holds
	// whatever the agent produced, as a JSON value.
	ToolInputError struct {
		ToolCallID string          `json:"toolCallId"`
		ToolName   string          `json:"toolName"`
		Input      json.RawMessage `json:"input"`
		ErrorText  string          `json:"errorText"`
	}

	// ToolOutputAvailable carries the result of a tool call.
	ToolOutputAvailable struct {
		ToolCallID string          `json:"toolCallId"`
		Output     json.RawMessage `json:"output"`
	}

	// ToolOutputError reports a tool call that failed to run.
	ToolOutputError struct {
		ToolCallID string `json:"toolCallId"`
		ErrorText  string `json:"errorText"`
	}

	// CustomData carries an application-defined payload. It is encoded with
	// type "data-<Name>".
	CustomData struct {
		Name string `json:"-"`
		Data any    `json:"data"`
	}

	// Finish signals the logical completion of the message.
	Finish struct{}

	// Error reports a failure that interrupted the stream.
	Error struct {
		ErrorText string `json:"errorText"`
	}

	// Done is the terminal sentinel. Nothing follows it.
	Done struct{}

	// Unknown is produced by Unmarshal for event types this package does not
	// know. Raw holds the original payload.
	Unknown struct {
		EventType EventType
		Raw       json.RawMessage
	}
)

// Wire discriminants.
const (
	TypeStart               EventType = "start"
	TypeTextStart           EventType = "text-start"
	TypeTextDelta           EventType = "text-delta"
	TypeTextEnd             EventType = "text-end"
	TypeReasoningStart      EventType = "reasoning-start"
	TypeReasoningDelta      EventType = "reasoning-delta"
	TypeReasoningEnd        EventType = "reasoning-end"
	TypeToolInputStart      EventType = "tool-input-start"
	TypeToolInputDelta      EventType = "tool-input-delta"
	TypeToolInputAvailable  EventType = "tool-input-available"
	TypeToolInputError      EventType = "tool-input-error"
	TypeToolOutputAvailable EventType = "tool-output-available"
	TypeToolOutputError     EventType = "tool-output-error"
	TypeFinish              EventType = "finish"
	TypeError               EventType = "error"

	// TypeDone is not a JSON type; it names the [DONE] sentinel in logs and
	// metrics.
	TypeDone EventType = "done"

	// DataTypePrefix prefixes the type of CustomData events.
	DataTypePrefix = "data-"
)

// DoneSentinel is the literal payload of the terminal frame.
const DoneSentinel = "[DONE]"

func (Start) Type() EventType               { return TypeStart }
func (TextStart) Type() EventType           { return TypeTextStart }
func (TextDelta) Type() EventType           { return TypeTextDelta }
func (TextEnd) Type() EventType             { return TypeTextEnd }
func (ReasoningStart) Type() EventType      { return TypeReasoningStart }
func (ReasoningDelta) Type() EventType      { return TypeReasoningDelta }
func (ReasoningEnd) Type() EventType        { return TypeReasoningEnd }
func (ToolInputStart) Type() EventType      { return TypeToolInputStart }
func (ToolInputDelta) Type() EventType      { return TypeToolInputDelta }
func (ToolInputAvailable) Type() EventType  { return TypeToolInputAvailable }
func (ToolInputError) Type() EventType      { return TypeToolInputError }
func (ToolOutputAvailable) Type() EventType { return TypeToolOutputAvailable }
func (ToolOutputError) Type() EventType     { return TypeToolOutputError }
func (Finish) Type() EventType              { return TypeFinish }
func (Error) Type() EventType               { return TypeError }
func (Done) Type() EventType                { return TypeDone }
func (e Unknown) Type() EventType           { return e.EventType }

// Type returns "data-" followed by the payload name.
func (e CustomData) Type() EventType { return EventType(DataTypePrefix + e.Name) }

func (Start) isEvent()               {}
func (TextStart) isEvent()           {}
func (TextDelta) isEvent()           {}
func (TextEnd) isEvent()             {}
func (ReasoningStart) isEvent()      {}
func (ReasoningDelta) isEvent()      {}
func (ReasoningEnd) isEvent()        {}
func (ToolInputStart) isEvent()      {}
func (ToolInputDelta) isEvent()      {}
func (ToolInputAvailable) isEvent()  {}
func (ToolInputError) isEvent()      {}
func (ToolOutputAvailable) isEvent() {}
func (ToolOutputError) isEvent()     {}
func (CustomData) isEvent()          {}
func (Finish) isEvent()              {}
func (Error) isEvent()               {}
func (Done) isEvent()                {}
func (Unknown) isEvent()             {}
