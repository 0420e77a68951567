// Package model defines JSON helpers for message content. Content values
// encode as discriminated unions keyed by Kind so transcripts show the
// concrete type of every part.
package model

import "encoding/json"

const (
	kindText       = "text"
	kindImage      = "image"
	kindToolResult = "tool_result"
	kindToolCall   = "tool_call"
	kindReasoning  = "reasoning"
)


// MarshalJSON encodes TextContent with a Kind discriminator.
func (c TextContent) MarshalJSON() ([]byte, error) {
	type alias TextContent
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{
		Kind:  kindText,
		alias: alias(c),
	})
}

// MarshalJSON encodes ImageContent with a Kind discriminator. Data is encoded
// as base64 by encoding/json.
func (c ImageContent) MarshalJSON() ([]byte, error) {
	type alias ImageContent
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{
		Kind:  kindImage,
		alias: alias(c),
	})
}

// MarshalJSON encodes ToolResultContent with a Kind discriminator.
func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	type alias ToolResultContent
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{
		Kind:  kindToolResult,
		alias: alias(c),
	})
}

// MarshalJSON encodes ToolCallContent with a Kind discriminator.
func (c ToolCallContent) MarshalJSON() ([]byte, error) {
	type alias ToolCallContent
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{
		Kind:  kindToolCall,
		alias: alias(c),
	})
}

// MarshalJSON encodes ReasoningContent with a Kind discriminator.
func (c ReasoningContent) MarshalJSON() ([]byte, error) {
	type alias ReasoningContent
	return json.Marshal(struct {
		Kind string `json:"Kind"` //nolint:tagliatelle
		alias
	}{
		Kind:  kindReasoning,
		alias: alias(c),
	})
}
