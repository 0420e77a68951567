package convert

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// MaxRequestBytes bounds the size of a chat request body.
const MaxRequestBytes = 8 << 20

// ChatRequest is the body the UI client posts to start a stream.
type ChatRequest struct {
	// ID identifies the conversation thread.
	ID string `json:"id,omitempty"`
	// Messages is the full history, oldest first. The last message is the
	// prompt.
	Messages []UIMessage `json:"messages"`
	// Trigger is the client action that produced the request, e.g.
	// "submit-message" or "regenerate-message".
	Trigger string `json:"trigger,omitempty"`
	// MessageID is the id of the message to regenerate, if any.
	MessageID string `json:"messageId,omitempty"`
}

//go:embed schema.json
var requestSchemaJSON []byte

var requestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(requestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("schema.json")
})

// DecodeChatRequest reads and validates a chat request. Every failure is a
// ConversionError with CodeInvalidRequest.
func DecodeChatRequest(r io.Reader) (*ChatRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxRequestBytes+1))
	if err != nil {
		return nil, invalidRequest("read body", err)
	}
	if len(body) > MaxRequestBytes {
		return nil, invalidRequest(fmt.Sprintf("body exceeds %d bytes", MaxRequestBytes), nil)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, invalidRequest("body is not valid JSON", err)
	}
	schema, err := requestSchema()
	if err != nil {
		return nil, fmt.Errorf("compile chat request schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, invalidRequest("body does not match the chat request schema", err)
	}
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalidRequest("decode body", err)
	}
	return &req, nil
}
