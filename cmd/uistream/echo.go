package main

import (
	"context"
	"fmt"
	"strings"

	"goa.design/uistream/runtime/agent/model"
)

// echoAgent answers every prompt with its own text. It needs no provider and
// exercises reasoning, text and usage events end to end.
type echoAgent struct{}

func (echoAgent) Stream(_ context.Context, prompt model.Message, history []model.Message) (model.Streamer, error) {
	text := prompt.Text()
	items := []model.Item{
		model.Reasoning{Fragments: []string{
			fmt.Sprintf("Echoing %d characters", len(text)),
			fmt.Sprintf(" after %d earlier messages.", len(history)),
		}},
	}
	for _, word := range strings.SplitAfter(text, " ") {
		if word != "" {
			items = append(items, model.TextDelta{Text: word})
		}
	}
	in := 0
	for _, m := range history {
		in += len(strings.Fields(m.Text()))
	}
	out := len(strings.Fields(text))
	in += out
	items = append(items,
		model.Final{},
		model.FinalResponse{
			Usage:      model.TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
			StopReason: "end_turn",
		},
	)
	return model.NewSliceStreamer(items, nil), nil
}
