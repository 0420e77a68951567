// Package model defines the agent-facing representation of a conversation and
// of the incremental output an agent produces. Messages carry role-tagged
// content lists; stream items describe one fragment of an assistant turn as the
// agent yields it. The types are provider-agnostic: adapters in features/model
// translate them to and from provider SDKs.
package model

import (
	"context"
	"encoding/json"
)

type (
	// Agent produces the incremental response for one conversation turn. The
	// prompt is the latest message; history holds the earlier turns in order.
	// Implementations must return a Streamer whose first Recv call does not
	// block on anything other than the agent's own I/O.
	Agent interface {
		Stream(ctx context.Context, prompt Message, history []Message) (Streamer, error)
	}

	// Streamer delivers the agent output one item at a time. Successive calls to
	// Recv return Item values until io.EOF. Any other error is terminal and no
	// further items follow. Streamers are consumed by a single goroutine, exactly
	// once; they cannot be rewound. Close releases the underlying resources and
	// may be called at any point, including before the stream is drained.
	Streamer interface {
		// Recv returns the next item from the stream.
		Recv() (Item, error)
		// Close closes the stream.
		Close() error
	}

	// Role identifies the author of an internal message.
	Role string

	// Message is one conversation turn as consumed by the agent. Content is
	// never empty: constructors substitute a single empty TextContent.
	Message struct {
		// Role is either RoleUser or RoleAssistant.
		Role Role
		// Content lists the turn items in their original order.
		Content []Content
	}

	// Content is the sealed union of items that can appear in a message.
	Content interface {
		isContent()
	}

	// UserContent is content that may appear in a user message.
	UserContent interface {
		Content
		isUserContent()
	}

	// AssistantContent is content that may appear in an assistant message.
	AssistantContent interface {
		Content
		isAssistantContent()
	}

	// TextContent is plain text authored by either role.
	TextContent struct {
		Text string
	}

	// ImageContent references an image attached by the user. Exactly one of URL
	// or Data is set: data URLs are decoded into Data, everything else is kept
	// as a URL.
	ImageContent struct {
		URL    string
		Data   []byte
		Format ImageFormat
	}

	// ToolResultContent carries the outcome of a tool call back to the agent.
	// A non-empty Error marks a failed tool run; Output is then empty.
	ToolResultContent struct {
		ToolCallID string
		Output     json.RawMessage
		Error      string
	}

	// ToolCallContent records a tool invocation previously requested by the
	// assistant.
	ToolCallContent struct {
		ID    string
		Name  string
		Input json.RawMessage
	}

	// ReasoningContent is assistant reasoning output. It exists so agents can
	// surface reasoning in their own transcripts; it is never rebuilt from
	// client history.
	ReasoningContent struct {
		Text      string
		Signature string
	}

	// ImageFormat enumerates the image encodings agents accept.
	ImageFormat string

	// TokenUsage records prompt/completion token counts reported by the model
	// provider. All fields are zero when the provider does not report usage.
	TokenUsage struct {
		// InputTokens counts tokens consumed by the prompt and history.
		InputTokens int `json:"inputTokens"`
		// OutputTokens counts tokens produced by the model.
		OutputTokens int `json:"outputTokens"`
		// TotalTokens is the aggregate reported by the provider.
		TotalTokens int `json:"totalTokens"`
		// CacheReadTokens counts prompt tokens served from the provider cache.
		CacheReadTokens int `json:"cacheReadTokens,omitempty"`
		// CacheWriteTokens counts prompt tokens written to the provider cache.
		CacheWriteTokens int `json:"cacheWriteTokens,omitempty"`
	}
)

const (
	// RoleUser marks messages authored by the end user (or system prompts,
	// which agents receive as user content).
	RoleUser Role = "user"
	// RoleAssistant marks messages authored by the agent.
	RoleAssistant Role = "assistant"
)

const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatGIF  ImageFormat = "gif"
	ImageFormatWebP ImageFormat = "webp"
	ImageFormatHEIC ImageFormat = "heic"
	ImageFormatHEIF ImageFormat = "heif"
	ImageFormatSVG  ImageFormat = "svg"
)

// NewUserMessage builds a user message from the given items. An empty list
// yields a single empty TextContent.
func NewUserMessage(items ...UserContent) Message {
	content := make([]Content, 0, max(len(items), 1))
	for _, it := range items {
		if it != nil {
			content = append(content, it)
		}
	}
	if len(content) == 0 {
		content = append(content, TextContent{})
	}
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant message from the given items. An
// empty list yields a single empty TextContent.
func NewAssistantMessage(items ...AssistantContent) Message {
	content := make([]Content, 0, max(len(items), 1))
	for _, it := range items {
		if it != nil {
			content = append(content, it)
		}
	}
	if len(content) == 0 {
		content = append(content, TextContent{})
	}
	return Message{Role: RoleAssistant, Content: content}
}

// Text concatenates the text content of the message.
func (m Message) Text() string {
	var out string
	for _, c := range m.Content {
		if t, ok := c.(TextContent); ok {
			out += t.Text
		}
	}
	return out
}

// MediaType returns the IANA media type for the format.
func (f ImageFormat) MediaType() string {
	switch f {
	case ImageFormatSVG:
		return "image/svg+xml"
	default:
		return "image/" + string(f)
	}
}

func (TextContent) isContent()       {}
func (ImageContent) isContent()      {}
func (ToolResultContent) isContent() {}
func (ToolCallContent) isContent()   {}
func (ReasoningContent) isContent()  {}

func (TextContent) isUserContent()       {}
func (ImageContent) isUserContent()      {}
func (ToolResultContent) isUserContent() {}

func (TextContent) isAssistantContent()      {}
func (ToolCallContent) isAssistantContent()  {}
func (ReasoningContent) isAssistantContent() {}
