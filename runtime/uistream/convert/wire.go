package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type (
	// UIMessage is one conversation turn as sent by the UI client.
	UIMessage struct {
		ID    string `json:"id,omitempty"`
		Role  string `json:"role"`
		Parts []Part `json:"parts"`
	}

	// Part is one element of a UIMessage. Part order is significant.
	Part interface {
		// PartType returns the wire discriminant of the part.
		PartType() string
		isPart()
	}

	// TextPart is plain text authored by the user or the assistant.
	TextPart struct {
		Text  string `json:"text"`
		State string `json:"state,omitempty"`
	}

	// ReasoningPart is assistant reasoning rendered by the client. It is
	// never sent back to the agent.
	ReasoningPart struct {
		Text  string `json:"text"`
		State string `json:"state,omitempty"`
	}

	// FilePart references an attachment by URL. The URL may be a data URL.
	FilePart struct {
		URL       string `json:"url"`
		MediaType string `json:"mediaType"`
		Filename  string `json:"filename,omitempty"`
	}

	// ToolPart tracks one tool invocation through its states.
	ToolPart struct {
		// Type is the wire discriminant: "tool-<name>", "dynamic-tool" or
		// "tool-result".
		Type       string          `json:"-"`
		ToolName   string          `json:"toolName,omitempty"`
		ToolCallID string          `json:"toolCallId"`
		State      ToolState       `json:"state"`
		Input      json.RawMessage `json:"input,omitempty"`
		Output     json.RawMessage `json:"output,omitempty"`
		ErrorText  string          `json:"errorText,omitempty"`
	}

	// SourcePart is a citation (source-url or source-document). Its content
	// is kept opaque.
	SourcePart struct {
		Type string
		Raw  json.RawMessage
	}

	// DataPart is an application-defined payload (data or data-<name>). Its
	// content is kept opaque.
	DataPart struct {
		Type string
		Raw  json.RawMessage
	}

	// IgnoredPart holds a part whose discriminant is not recognized, such as
	// step-start or parts introduced by newer clients.
	IgnoredPart struct {
		Type string
		Raw  json.RawMessage
	}

	// ToolState is the streaming state of a tool part.
	ToolState string
)

const (
	ToolStateInputStreaming  ToolState = "input-streaming"
	ToolStateInputAvailable  ToolState = "input-available"
	ToolStateOutputAvailable ToolState = "output-available"
	ToolStateOutputError     ToolState = "output-error"
)

// Part discriminants.
const (
	PartTypeText           = "text"
	PartTypeReasoning      = "reasoning"
	PartTypeFile           = "file"
	PartTypeDynamicTool    = "dynamic-tool"
	PartTypeToolResult     = "tool-result"
	PartTypeSourceURL      = "source-url"
	PartTypeSourceDocument = "source-document"
	PartTypeData           = "data"

	toolPrefix = "tool-"
	dataPrefix = "data-"
)

func (TextPart) PartType() string      { return PartTypeText }
func (ReasoningPart) PartType() string { return PartTypeReasoning }
func (FilePart) PartType() string      { return PartTypeFile }
func (p ToolPart) PartType() string    { return p.Type }
func (p SourcePart) PartType() string  { return p.Type }
func (p DataPart) PartType() string    { return p.Type }
func (p IgnoredPart) PartType() string { return p.Type }

func (TextPart) isPart()      {}
func (ReasoningPart) isPart() {}
func (FilePart) isPart()      {}
func (ToolPart) isPart()      {}
func (SourcePart) isPart()    {}
func (DataPart) isPart()      {}
func (IgnoredPart) isPart()   {}

// Name returns the tool name, taken from the discriminant for "tool-<name>"
// parts and from ToolName otherwise.
func (p ToolPart) Name() string {
	if p.ToolName != "" {
		return p.ToolName
	}
	if p.Type != PartTypeDynamicTool && p.Type != PartTypeToolResult {
		return strings.TrimPrefix(p.Type, toolPrefix)
	}
	return ""
}

// HasInput reports whether the part carries a non-null input.
func (p ToolPart) HasInput() bool {
	in := bytes.TrimSpace(p.Input)
	return len(in) > 0 && !bytes.Equal(in, []byte("null"))
}

// UnmarshalJSON decodes the message, dispatching each part on its "type"
// field.
func (m *UIMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string            `json:"id"`
		Role  string            `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := make([]Part, 0, len(raw.Parts))
	for i, rp := range raw.Parts {
		p, err := decodePart(rp)
		if err != nil {
			return fmt.Errorf("message %q part %d: %w", raw.ID, i, err)
		}
		parts = append(parts, p)
	}
	m.ID, m.Role, m.Parts = raw.ID, raw.Role, parts
	return nil
}

// MarshalJSON encodes the message with each part's discriminant.
func (m UIMessage) MarshalJSON() ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(m.Parts))
	for _, p := range m.Parts {
		b, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, b)
	}
	return json.Marshal(struct {
		ID    string            `json:"id,omitempty"`
		Role  string            `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}{m.ID, m.Role, parts})
}

func decodePart(data []byte) (Part, error) {
	var head struct {
		Type   string          `json:"type"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch t := head.Type; {
	case t == PartTypeText:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case t == PartTypeReasoning:
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case t == PartTypeFile:
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case t == PartTypeToolResult:
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		p.Type = t
		if len(p.Output) == 0 {
			p.Output = head.Result
		}
		if p.State == "" {
			p.State = ToolStateOutputAvailable
		}
		return p, nil
	case t == PartTypeDynamicTool, strings.HasPrefix(t, toolPrefix):
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		p.Type = t
		return p, nil
	case t == PartTypeSourceURL, t == PartTypeSourceDocument:
		return SourcePart{Type: t, Raw: json.RawMessage(data)}, nil
	case t == PartTypeData, strings.HasPrefix(t, dataPrefix):
		return DataPart{Type: t, Raw: json.RawMessage(data)}, nil
	default:
		return IgnoredPart{Type: t, Raw: json.RawMessage(data)}, nil
	}
}

func encodePart(p Part) ([]byte, error) {
	switch v := p.(type) {
	case SourcePart:
		return v.Raw, nil
	case DataPart:
		return v.Raw, nil
	case IgnoredPart:
		return v.Raw, nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	typ, err := json.Marshal(p.PartType())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
