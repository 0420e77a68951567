package convert

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/uistream/runtime/agent/model"
)

func decodeMessages(t *testing.T, raw string) []UIMessage {
	t.Helper()
	var msgs []UIMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	return msgs
}

func TestUserTextMessage(t *testing.T) {
	msgs := decodeMessages(t, `[{"id":"m1","role":"user","parts":[{"type":"text","text":"hello"}]}]`)
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Message{{
		Role:    model.RoleUser,
		Content: []model.Content{model.TextContent{Text: "hello"}},
	}}, got)
}

func TestAssistantReasoningIsDropped(t *testing.T) {
	msgs := decodeMessages(t, `[{"id":"a1","role":"assistant","parts":[
		{"type":"reasoning","text":"thinking"},
		{"type":"text","text":"answer"}
	]}]`)
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Message{{
		Role:    model.RoleAssistant,
		Content: []model.Content{model.TextContent{Text: "answer"}},
	}}, got)
}

func TestImageMediaTypes(t *testing.T) {
	msgs := decodeMessages(t, `[{"id":"m1","role":"user","parts":[
		{"type":"file","mediaType":"image/tiff","url":"https://example.com/a.tiff"},
		{"type":"file","mediaType":"image/png","url":"https://example.com/b.png"},
		{"type":"text","text":"what is this?"}
	]}]`)
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Content{
		model.ImageContent{URL: "https://example.com/b.png", Format: model.ImageFormatPNG},
		model.TextContent{Text: "what is this?"},
	}, got[0].Content)
}

func TestImageDataURL(t *testing.T) {
	msgs := []UIMessage{{Role: RoleUser, Parts: []Part{
		FilePart{URL: "data:image/gif;base64,R0lG", MediaType: ""},
		FilePart{URL: "data:image/png;base64,!!!", MediaType: "image/png"},
	}}}
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Content{
		model.ImageContent{Data: []byte("GIF"), Format: model.ImageFormatGIF},
	}, got[0].Content)
}

func TestImageFormatFor(t *testing.T) {
	cases := map[string]model.ImageFormat{
		"image/jpeg":    model.ImageFormatJPEG,
		"image/jpg":     model.ImageFormatJPEG,
		"IMAGE/PNG":     model.ImageFormatPNG,
		"image/gif":     model.ImageFormatGIF,
		"image/webp":    model.ImageFormatWebP,
		"image/heic":    model.ImageFormatHEIC,
		"image/heif":    model.ImageFormatHEIF,
		"image/svg+xml": model.ImageFormatSVG,
	}
	for mt, want := range cases {
		f, ok := ImageFormatFor(mt)
		require.True(t, ok, mt)
		require.Equal(t, want, f, mt)
	}
	for _, mt := range []string{"image/bmp", "image/tiff", "application/pdf", ""} {
		_, ok := ImageFormatFor(mt)
		require.False(t, ok, mt)
	}
	f, ok := ImageFormatFor("image/png; name=a.png")
	require.True(t, ok)
	require.Equal(t, model.ImageFormatPNG, f)
}

func TestUserToolResults(t *testing.T) {
	msgs := decodeMessages(t, `[{"role":"user","parts":[
		{"type":"tool-search","toolCallId":"t1","state":"output-available","input":{"q":"go"},"output":{"hits":3}},
		{"type":"tool-search","toolCallId":"t2","state":"output-error","input":{"q":"x"},"errorText":"timeout"},
		{"type":"tool-search","toolCallId":"t3","state":"input-available","input":{"q":"y"}},
		{"type":"tool-result","toolCallId":"t4","toolName":"search","result":"legacy"}
	]}]`)
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Content{
		model.ToolResultContent{ToolCallID: "t1", Output: json.RawMessage(`{"hits":3}`)},
		model.ToolResultContent{ToolCallID: "t2", Error: "timeout"},
		model.ToolResultContent{ToolCallID: "t4", Output: json.RawMessage(`"legacy"`)},
	}, got[0].Content)
}

func TestAssistantToolCalls(t *testing.T) {
	msgs := decodeMessages(t, `[{"role":"assistant","parts":[
		{"type":"step-start"},
		{"type":"tool-search","toolCallId":"t1","state":"input-available","input":{"q":"go"}},
		{"type":"dynamic-tool","toolName":"lookup","toolCallId":"t2","state":"output-available","input":{"id":1},"output":"ok"},
		{"type":"tool-search","toolCallId":"t3","state":"input-streaming","input":{"q":"par"}},
		{"type":"tool-search","toolCallId":"t4","state":"input-streaming"},
		{"type":"tool-search","toolCallId":"t5","state":"output-error","input":{"q":"x"},"errorText":"boom"},
		{"type":"source-url","sourceId":"s1","url":"https://example.com"},
		{"type":"data-weather","data":{"temp":21}},
		{"type":"text","text":"done"}
	]}]`)
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, []model.Content{
		model.ToolCallContent{ID: "t1", Name: "search", Input: json.RawMessage(`{"q":"go"}`)},
		model.ToolCallContent{ID: "t2", Name: "lookup", Input: json.RawMessage(`{"id":1}`)},
		model.ToolCallContent{ID: "t3", Name: "search", Input: json.RawMessage(`{"q":"par"}`)},
		model.TextContent{Text: "done"},
	}, got[0].Content)
}

func TestSystemMessageBecomesUser(t *testing.T) {
	got, err := ToInternal([]UIMessage{{Role: RoleSystem, Parts: []Part{TextPart{Text: "be brief"}}}})
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, got[0].Role)
	require.Equal(t, "be brief", got[0].Text())
}

func TestFilteredMessageDegeneratesToEmptyText(t *testing.T) {
	got, err := ToInternal([]UIMessage{
		{Role: RoleAssistant, Parts: []Part{ReasoningPart{Text: "hidden"}}},
		{Role: RoleUser},
	})
	require.NoError(t, err)
	for _, m := range got {
		require.Equal(t, []model.Content{model.TextContent{}}, m.Content)
	}
}

func TestUnsupportedRole(t *testing.T) {
	_, err := ToInternal([]UIMessage{
		{Role: RoleUser, Parts: []Part{TextPart{Text: "hi"}}},
		{Role: "tool", Parts: []Part{TextPart{Text: "?"}}},
	})
	require.ErrorIs(t, err, ErrUnsupportedRole)
	require.NotErrorIs(t, err, ErrEmptyMessages)
	var cerr *ConversionError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "tool", cerr.Role)
	require.Contains(t, cerr.Error(), `"tool"`)
}

func TestSplitLast(t *testing.T) {
	msgs := []UIMessage{
		{Role: RoleUser, Parts: []Part{TextPart{Text: "q1"}}},
		{Role: RoleAssistant, Parts: []Part{TextPart{Text: "a1"}}},
		{Role: RoleUser, Parts: []Part{TextPart{Text: "q2"}}},
	}
	prompt, history, err := SplitLast(msgs)
	require.NoError(t, err)
	require.Equal(t, "q2", prompt.Text())
	require.Len(t, history, 2)
	require.Equal(t, model.RoleAssistant, history[1].Role)

	prompt, history, err = SplitLast(msgs[:1])
	require.NoError(t, err)
	require.Equal(t, "q1", prompt.Text())
	require.Empty(t, history)
}

func TestSplitLastEmpty(t *testing.T) {
	_, _, err := SplitLast(nil)
	require.ErrorIs(t, err, ErrEmptyMessages)
}

func TestSplitLastPropagatesRoleError(t *testing.T) {
	_, _, err := SplitLast([]UIMessage{{Role: "critic"}})
	require.ErrorIs(t, err, ErrUnsupportedRole)
}

func TestUnknownPartsAreIgnored(t *testing.T) {
	msgs := decodeMessages(t, `[{"role":"user","parts":[{"type":"hologram","beam":1},{"type":"text","text":"hi"}]}]`)
	require.Equal(t, IgnoredPart{Type: "hologram", Raw: json.RawMessage(`{"type":"hologram","beam":1}`)}, msgs[0].Parts[0])
	got, err := ToInternal(msgs)
	require.NoError(t, err)
	require.Equal(t, "hi", got[0].Text())
}

func TestMessageJSONRoundTrip(t *testing.T) {
	in := `{"id":"m1","role":"assistant","parts":[` +
		`{"type":"text","text":"hi"},` +
		`{"type":"tool-search","toolCallId":"t1","state":"input-available","input":{"q":"go"}},` +
		`{"type":"data-x","data":1}]}`
	var m UIMessage
	require.NoError(t, json.Unmarshal([]byte(in), &m))
	out, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, in, string(out))
}

func TestDecodeChatRequest(t *testing.T) {
	req, err := DecodeChatRequest(strings.NewReader(`{
		"id":"chat-1","trigger":"submit-message",
		"messages":[{"id":"m1","role":"user","parts":[{"type":"text","text":"hello"}]}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "chat-1", req.ID)
	require.Equal(t, "submit-message", req.Trigger)
	require.Len(t, req.Messages, 1)
	require.Equal(t, []Part{TextPart{Text: "hello"}}, req.Messages[0].Parts)
}

func TestDecodeChatRequestInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"messages":`,
		"missing messages":  `{"id":"x"}`,
		"part without type": `{"messages":[{"role":"user","parts":[{"text":"hi"}]}]}`,
		"role not string":   `{"messages":[{"role":1,"parts":[]}]}`,
		"oversized":         `{"messages":[],"pad":"` + strings.Repeat("x", MaxRequestBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeChatRequest(strings.NewReader(body))
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestDecodeChatRequestAllowsUnknownRoleAndEmptyList(t *testing.T) {
	req, err := DecodeChatRequest(strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	_, _, err = SplitLast(req.Messages)
	require.ErrorIs(t, err, ErrEmptyMessages)

	req, err = DecodeChatRequest(strings.NewReader(`{"messages":[{"role":"tool","parts":[]}]}`))
	require.NoError(t, err)
	_, _, err = SplitLast(req.Messages)
	require.ErrorIs(t, err, ErrUnsupportedRole)
}
