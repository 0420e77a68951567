package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"goa.design/uistream/runtime/agent/model"
)

// streamer adapts a Messages stream to model.Streamer. Events are read from
// the SDK stream only when Recv needs the next item.
type streamer struct {
	stream  *ssestream.Stream[sdk.MessageStreamEventUnion]
	proc    *processor
	pending []model.Item
	err     error
}

func newStreamer(stream *ssestream.Stream[sdk.MessageStreamEventUnion]) model.Streamer {
	return &streamer{stream: stream, proc: newProcessor()}
}

func (s *streamer) Recv() (model.Item, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		if !s.stream.Next() {
			s.err = io.EOF
			if err := s.stream.Err(); err != nil {
				s.err = wrapError("messages.stream", err)
			}
			continue
		}
		items, err := s.proc.handle(s.stream.Current())
		if err != nil {
			s.err = err
			continue
		}
		s.pending = items
	}
	it := s.pending[0]
	s.pending = s.pending[1:]
	return it, nil
}

func (s *streamer) Close() error {
	if s.err == nil {
		s.err = io.EOF
	}
	return s.stream.Close()
}

// processor converts streaming events to items. Content blocks are tracked by
// their index in the message.
type processor struct {
	tools    map[int]*toolBuffer
	thinking map[int]bool
	text     map[int]bool

	usage      model.TokenUsage
	stopReason string
}

type toolBuffer struct {
	id        string
	name      string
	fragments []string
}

func newProcessor() *processor {
	p := &processor{}
	p.reset()
	return p
}

func (p *processor) reset() {
	p.tools = make(map[int]*toolBuffer)
	p.thinking = make(map[int]bool)
	p.text = make(map[int]bool)
	p.usage = model.TokenUsage{}
	p.stopReason = ""
}

func (p *processor) handle(event sdk.MessageStreamEventUnion) ([]model.Item, error) {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		p.reset()
		u := ev.Message.Usage
		p.usage.InputTokens = int(u.InputTokens)
		p.usage.CacheReadTokens = int(u.CacheReadInputTokens)
		p.usage.CacheWriteTokens = int(u.CacheCreationInputTokens)
		return nil, nil
	case sdk.ContentBlockStartEvent:
		idx := int(ev.Index)
		toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock)
		if !ok {
			return nil, nil
		}
		if toolUse.ID == "" {
			return nil, fmt.Errorf("anthropic stream: tool use block missing id")
		}
		if toolUse.Name == "" {
			return nil, fmt.Errorf("anthropic stream: tool use block %q missing name", toolUse.ID)
		}
		p.tools[idx] = &toolBuffer{id: toolUse.ID, name: toolUse.Name}
		return []model.Item{model.ToolCallNameDelta{ID: toolUse.ID, Name: toolUse.Name}}, nil
	case sdk.ContentBlockDeltaEvent:
		return p.delta(int(ev.Index), ev.Delta)
	case sdk.ContentBlockStopEvent:
		idx := int(ev.Index)
		delete(p.thinking, idx)
		if p.text[idx] {
			delete(p.text, idx)
			return []model.Item{model.Final{}}, nil
		}
		tb := p.tools[idx]
		if tb == nil {
			return nil, nil
		}
		delete(p.tools, idx)
		return []model.Item{model.ToolCall{ID: tb.id, Name: tb.name, Arguments: tb.input()}}, nil
	case sdk.MessageDeltaEvent:
		p.stopReason = string(ev.Delta.StopReason)
		if n := int(ev.Usage.InputTokens); n > p.usage.InputTokens {
			p.usage.InputTokens = n
		}
		p.usage.OutputTokens = int(ev.Usage.OutputTokens)
		return nil, nil
	case sdk.MessageStopEvent:
		usage := p.usage
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		return []model.Item{model.Final{}, model.FinalResponse{Usage: usage, StopReason: p.stopReason}}, nil
	}
	return nil, nil
}

func (p *processor) delta(idx int, delta sdk.RawContentBlockDeltaUnion) ([]model.Item, error) {
	switch d := delta.AsAny().(type) {
	case sdk.TextDelta:
		if d.Text == "" {
			return nil, nil
		}
		p.text[idx] = true
		return []model.Item{model.TextDelta{Text: d.Text}}, nil
	case sdk.InputJSONDelta:
		tb := p.tools[idx]
		if tb == nil || d.PartialJSON == "" {
			return nil, nil
		}
		tb.fragments = append(tb.fragments, d.PartialJSON)
		return []model.Item{model.ToolCallArgumentsDelta{ID: tb.id, Delta: d.PartialJSON}}, nil
	case sdk.ThinkingDelta:
		if d.Thinking == "" {
			return nil, nil
		}
		if p.thinking[idx] {
			return []model.Item{model.ReasoningDelta{Text: d.Thinking}}, nil
		}
		p.thinking[idx] = true
		return []model.Item{model.Reasoning{ID: fmt.Sprintf("thinking_%d", idx), Fragments: []string{d.Thinking}}}, nil
	}
	return nil, nil
}

func (tb *toolBuffer) input() json.RawMessage {
	joined := strings.TrimSpace(strings.Join(tb.fragments, ""))
	if joined == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(joined)
}
