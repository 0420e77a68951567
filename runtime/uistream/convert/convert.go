// Package convert maps the UI client's message history to the messages the
// agent consumes.
//
// Conversion is synchronous and happens once per request, before any event
// is streamed. It is lossy by construction: reasoning, sources and data parts
// flow from the agent to the client only and are never sent back.
package convert

import (
	"goa.design/uistream/runtime/agent/model"
)

// Wire roles.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// ToInternal converts msgs in order. It fails with a ConversionError wrapping
// ErrUnsupportedRole if any message has a role other than user, system or
// assistant. A message whose parts all filter out converts to a single empty
// text item.
func ToInternal(msgs []UIMessage) ([]model.Message, error) {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		msg, err := toInternal(m)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// SplitLast converts msgs and returns the last message as the prompt and the
// others as history. It fails with ErrEmptyMessages when msgs is empty.
func SplitLast(msgs []UIMessage) (prompt model.Message, history []model.Message, err error) {
	if len(msgs) == 0 {
		return model.Message{}, nil, ErrEmptyMessages
	}
	all, err := ToInternal(msgs)
	if err != nil {
		return model.Message{}, nil, err
	}
	n := len(all) - 1
	return all[n], all[:n], nil
}

func toInternal(m UIMessage) (model.Message, error) {
	switch m.Role {
	case RoleUser, RoleSystem:
		return model.NewUserMessage(userContent(m.Parts)...), nil
	case RoleAssistant:
		return model.NewAssistantMessage(assistantContent(m.Parts)...), nil
	default:
		return model.Message{}, unsupportedRole(m.Role)
	}
}

func userContent(parts []Part) []model.UserContent {
	var out []model.UserContent
	for _, p := range parts {
		switch v := p.(type) {
		case TextPart:
			out = append(out, model.TextContent{Text: v.Text})
		case ToolPart:
			switch v.State {
			case ToolStateOutputAvailable:
				out = append(out, model.ToolResultContent{ToolCallID: v.ToolCallID, Output: v.Output})
			case ToolStateOutputError:
				out = append(out, model.ToolResultContent{ToolCallID: v.ToolCallID, Error: v.ErrorText})
			}
		case FilePart:
			if img, ok := imageContent(v); ok {
				out = append(out, img)
			}
		}
	}
	return out
}

func assistantContent(parts []Part) []model.AssistantContent {
	var out []model.AssistantContent
	for _, p := range parts {
		switch v := p.(type) {
		case TextPart:
			out = append(out, model.TextContent{Text: v.Text})
		case ToolPart:
			switch v.State {
			case ToolStateInputAvailable, ToolStateOutputAvailable, ToolStateInputStreaming:
				if v.HasInput() {
					out = append(out, model.ToolCallContent{ID: v.ToolCallID, Name: v.Name(), Input: v.Input})
				}
			}
		}
	}
	return out
}
