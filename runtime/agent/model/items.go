package model

import "encoding/json"

type (
	// Item is one fragment of agent output. Items are produced in strict order
	// and consumed exactly once. Consumers must ignore item kinds they do not
	// recognize.
	Item interface {
		isItem()
	}

	// TextDelta is a fragment of assistant text.
	TextDelta struct {
		Text string
	}

	// ToolCall is a complete tool invocation whose arguments are fully known.
	ToolCall struct {
		ID        string
		Name      string
		Arguments json.RawMessage
	}

	// ToolCallNameDelta announces a tool call and its name before its arguments
	// stream in.
	ToolCallNameDelta struct {
		ID   string
		Name string
	}

	// ToolCallArgumentsDelta is a raw fragment of the JSON arguments for the
	// tool call identified by ID. Fragments are not valid JSON on their own.
	ToolCallArgumentsDelta struct {
		ID    string
		Delta string
	}

	// Reasoning opens a reasoning segment. ID is the provider block identifier
	// (may be empty). Fragments holds the reasoning text received with the
	// opening event, in order.
	Reasoning struct {
		ID        string
		Fragments []string
		Signature string
	}

	// ReasoningDelta continues the current reasoning segment. A non-empty ID
	// re-keys the fragment to a block other than the one currently open.
	ReasoningDelta struct {
		ID   string
		Text string
	}

	// Final marks the end of one assistant text turn.
	Final struct{}

	// ToolResult reports the outcome of the tool call identified by ToolCallID.
	// A non-empty Error marks a failed tool run.
	ToolResult struct {
		ToolCallID string
		Output     json.RawMessage
		Error      string
	}

	// FinalResponse is the last item of a successful stream. It carries the
	// usage aggregated over every model call the agent made.
	FinalResponse struct {
		Usage      TokenUsage
		StopReason string
	}
)

func (TextDelta) isItem()              {}
func (ToolCall) isItem()               {}
func (ToolCallNameDelta) isItem()      {}
func (ToolCallArgumentsDelta) isItem() {}
func (Reasoning) isItem()              {}
func (ReasoningDelta) isItem()         {}
func (Final) isItem()                  {}
func (ToolResult) isItem()             {}
func (FinalResponse) isItem()          {}
