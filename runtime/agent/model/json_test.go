package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentMarshalJSONIncludesKind(t *testing.T) {
	cases := []struct {
		name    string
		content Content
		kind    string
	}{
		{name: "text", content: TextContent{Text: "hello"}, kind: "text"},
		{name: "image", content: ImageContent{URL: "https://x/y.png", Format: ImageFormatPNG}, kind: "image"},
		{name: "tool_result", content: ToolResultContent{ToolCallID: "t1", Output: json.RawMessage(`{"hits":1}`)}, kind: "tool_result"},
		{name: "tool_call", content: ToolCallContent{ID: "t1", Name: "search", Input: json.RawMessage(`{"q":"go"}`)}, kind: "tool_call"},
		{name: "reasoning", content: ReasoningContent{Text: "hmm"}, kind: "reasoning"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.content)
			require.NoError(t, err)
			var obj map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &obj))

			var kind string
			require.NoError(t, json.Unmarshal(obj["Kind"], &kind))
			require.Equal(t, tt.kind, kind)
		})
	}
}

func TestMessageJSONListsContentInOrder(t *testing.T) {
	msg := NewAssistantMessage(
		TextContent{Text: "let me look"},
		ToolCallContent{ID: "t1", Name: "search", Input: json.RawMessage(`{"q":"go"}`)},
	)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var got struct {
		Role    Role
		Content []map[string]any
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, RoleAssistant, got.Role)
	require.Len(t, got.Content, 2)
	require.Equal(t, "text", got.Content[0]["Kind"])
	require.Equal(t, "let me look", got.Content[0]["Text"])
	require.Equal(t, "tool_call", got.Content[1]["Kind"])
	require.Equal(t, "search", got.Content[1]["Name"])
	require.Equal(t, map[string]any{"q": "go"}, got.Content[1]["Input"])
}

func TestConstructorsNeverReturnEmptyContent(t *testing.T) {
	require.Equal(t, []Content{TextContent{}}, NewUserMessage().Content)
	require.Equal(t, []Content{TextContent{}}, NewAssistantMessage().Content)
}
