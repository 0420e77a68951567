// Package anthropic provides a model.Agent backed by the Anthropic Claude
// Messages streaming API. It encodes the converted conversation with
// github.com/anthropics/anthropic-sdk-go and maps streaming events (text,
// thinking, tool use, usage) to model stream items.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"goa.design/uistream/runtime/agent/model"
)

const providerName = "anthropic"

type (
	// MessagesClient captures the subset of the Anthropic SDK used by the
	// adapter. It is satisfied by *sdk.MessageService.
	MessagesClient interface {
		NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
	}

	// Options configures the adapter.
	Options struct {
		// Model is the Claude model identifier, e.g.
		// string(sdk.ModelClaudeSonnet4_5_20250929). Required.
		Model string
		// MaxTokens caps the completion. Required.
		MaxTokens int
		// Temperature is sent when positive.
		Temperature float64
		// ThinkingBudget enables extended thinking when positive. It must be
		// at least 1024 and less than MaxTokens.
		ThinkingBudget int64
		// System is an optional system prompt.
		System string
		// Tools declares the tools the model may call. Conversations that
		// contain tool calls or results must declare the tools involved.
		Tools []ToolDefinition
	}

	// ToolDefinition describes a tool offered to the model.
	ToolDefinition struct {
		Name        string
		Description string
		// InputSchema is the JSON Schema of the tool input.
		InputSchema json.RawMessage
	}

	// Client implements model.Agent on top of Claude Messages.
	Client struct {
		msg    MessagesClient
		model  string
		maxTok int
		temp   float64
		think  int64
		system string
		tools  []sdk.ToolUnionParam
	}
)

// New returns a Client using msg.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	if opts.MaxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	if b := opts.ThinkingBudget; b > 0 {
		if b < 1024 {
			return nil, fmt.Errorf("anthropic: thinking budget %d must be >= 1024", b)
		}
		if b >= int64(opts.MaxTokens) {
			return nil, fmt.Errorf("anthropic: thinking budget %d must be less than max_tokens %d", b, opts.MaxTokens)
		}
	}
	tools, err := encodeTools(opts.Tools)
	if err != nil {
		return nil, err
	}
	return &Client{
		msg:    msg,
		model:  opts.Model,
		maxTok: opts.MaxTokens,
		temp:   opts.Temperature,
		think:  opts.ThinkingBudget,
		system: opts.System,
		tools:  tools,
	}, nil
}

// NewFromAPIKey returns a Client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Stream starts a streaming Messages request for history followed by prompt.
func (c *Client) Stream(ctx context.Context, prompt model.Message, history []model.Message) (model.Streamer, error) {
	params, err := c.prepareRequest(append(append([]model.Message(nil), history...), prompt))
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, wrapError("messages.stream", err)
	}
	return newStreamer(stream), nil
}

func (c *Client) prepareRequest(msgs []model.Message) (*sdk.MessageNewParams, error) {
	conversation, err := encodeMessages(msgs)
	if err != nil {
		return nil, err
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(c.maxTok),
		Messages:  conversation,
		Model:     sdk.Model(c.model),
	}
	if c.system != "" {
		params.System = []sdk.TextBlockParam{{Text: c.system}}
	}
	if len(c.tools) > 0 {
		params.Tools = c.tools
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	if c.think > 0 {
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(c.think)
	}
	return &params, nil
}

// encodeMessages converts the conversation. Reasoning is never re-sent and
// messages left without blocks are skipped.
func encodeMessages(msgs []model.Message) ([]sdk.MessageParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, c := range m.Content {
			switch v := c.(type) {
			case model.TextContent:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case model.ImageContent:
				if b, ok := encodeImage(v); ok {
					blocks = append(blocks, b)
				}
			case model.ToolCallContent:
				if v.Name == "" {
					return nil, errors.New("anthropic: tool_use content missing name")
				}
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, toolInput(v.Input), v.Name))
			case model.ToolResultContent:
				blocks = append(blocks, encodeToolResult(v))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case model.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, errors.New("anthropic: at least one non-empty message is required")
	}
	return conversation, nil
}

// encodeImage returns an image block for the formats Claude accepts. HEIC,
// HEIF and SVG images are skipped.
func encodeImage(img model.ImageContent) (sdk.ContentBlockParamUnion, bool) {
	switch img.Format {
	case model.ImageFormatJPEG, model.ImageFormatPNG, model.ImageFormatGIF, model.ImageFormatWebP:
	default:
		return sdk.ContentBlockParamUnion{}, false
	}
	if len(img.Data) > 0 {
		return sdk.NewImageBlockBase64(img.Format.MediaType(), base64.StdEncoding.EncodeToString(img.Data)), true
	}
	if img.URL != "" {
		return sdk.NewImageBlock(sdk.URLImageSourceParam{URL: img.URL}), true
	}
	return sdk.ContentBlockParamUnion{}, false
}

func encodeToolResult(v model.ToolResultContent) sdk.ContentBlockParamUnion {
	if v.Error != "" {
		return sdk.NewToolResultBlock(v.ToolCallID, v.Error, true)
	}
	var s string
	if err := json.Unmarshal(v.Output, &s); err == nil {
		return sdk.NewToolResultBlock(v.ToolCallID, s, false)
	}
	return sdk.NewToolResultBlock(v.ToolCallID, string(v.Output), false)
}

// toolInput returns the decoded tool input, defaulting to an empty object.
func toolInput(raw json.RawMessage) any {
	var in map[string]any
	if err := json.Unmarshal(raw, &in); err != nil || in == nil {
		return map[string]any{}
	}
	return in
}

func encodeTools(defs []ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, errors.New("anthropic: tool name is required")
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("anthropic: tool %q declared twice", def.Name)
		}
		seen[def.Name] = true
		if def.Description == "" {
			return nil, fmt.Errorf("anthropic: tool %q is missing description", def.Name)
		}
		schema, err := toolInputSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func toolInputSchema(raw json.RawMessage) (sdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}
