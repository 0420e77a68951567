package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/uistream/runtime/agent/model"
	"goa.design/uistream/runtime/uistream/protocol"
)

const overrideID = "override"

// itemFor maps a generated code to a stream item so that generators stay
// concrete.
func itemFor(code, i int) model.Item {
	id := fmt.Sprintf("t%d", i)
	switch code {
	case 0:
		return model.TextDelta{Text: fmt.Sprintf("text %d", i)}
	case 1:
		return model.ToolCall{ID: id, Name: "search", Arguments: json.RawMessage(`{"q":"x"}`)}
	case 2:
		return model.ToolCallNameDelta{ID: id, Name: "search"}
	case 3:
		return model.ToolCallArgumentsDelta{ID: id, Delta: `{"q":`}
	case 4:
		return model.Reasoning{ID: id, Fragments: []string{"a", "b"}}
	case 5:
		return model.ReasoningDelta{Text: "more"}
	case 6:
		return model.ReasoningDelta{ID: overrideID, Text: "keyed"}
	case 7:
		return model.Final{}
	case 8:
		return model.ToolResult{ToolCallID: id, Output: json.RawMessage(`"ok"`)}
	default:
		return model.FinalResponse{Usage: model.TokenUsage{TotalTokens: i}}
	}
}

// checkStream returns an error describing the first lifecycle violation in
// evs.
func checkStream(evs []protocol.Event, failed bool) error {
	n := len(evs)
	if n < 3 {
		return fmt.Errorf("stream too short: %d events", n)
	}
	if _, ok := evs[0].(protocol.Start); !ok {
		return fmt.Errorf("first event is %s", evs[0].Type())
	}
	if _, ok := evs[n-2].(protocol.Finish); !ok {
		return fmt.Errorf("penultimate event is %s", evs[n-2].Type())
	}
	if _, ok := evs[n-1].(protocol.Done); !ok {
		return fmt.Errorf("last event is %s", evs[n-1].Type())
	}
	var (
		seen          = make(map[string]bool)
		text, reason  string
		errorsEmitted int
	)
	open := func(cur *string, id string) error {
		if *cur != "" {
			return fmt.Errorf("block %q opened while %q is open", id, *cur)
		}
		if seen[id] {
			return fmt.Errorf("block id %q reused", id)
		}
		seen[id] = true
		*cur = id
		return nil
	}
	for i, ev := range evs {
		if i > 0 && i < n-2 {
			switch ev.(type) {
			case protocol.Start, protocol.Finish, protocol.Done:
				return fmt.Errorf("%s at position %d", ev.Type(), i)
			}
		}
		var err error
		switch e := ev.(type) {
		case protocol.TextStart:
			err = open(&text, e.ID)
		case protocol.TextDelta:
			if e.ID != text {
				err = fmt.Errorf("text delta for %q, open %q", e.ID, text)
			}
		case protocol.TextEnd:
			if e.ID != text {
				err = fmt.Errorf("text end for %q, open %q", e.ID, text)
			}
			text = ""
		case protocol.ReasoningStart:
			err = open(&reason, e.ID)
		case protocol.ReasoningDelta:
			if e.ID != reason && e.ID != overrideID {
				err = fmt.Errorf("reasoning delta for %q, open %q", e.ID, reason)
			}
		case protocol.ReasoningEnd:
			if e.ID != reason {
				err = fmt.Errorf("reasoning end for %q, open %q", e.ID, reason)
			}
			reason = ""
		case protocol.Error:
			errorsEmitted++
			if i != n-3 {
				return fmt.Errorf("error at position %d of %d", i, n)
			}
		}
		if err != nil {
			return err
		}
	}
	if failed != (errorsEmitted == 1) || errorsEmitted > 1 {
		return fmt.Errorf("failed=%v but %d error events", failed, errorsEmitted)
	}
	return nil
}

func TestStreamLifecycleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every stream is well formed", prop.ForAll(
		func(codes []int, fail bool) bool {
			items := make([]model.Item, len(codes))
			for i, c := range codes {
				items[i] = itemFor(c, i)
			}
			var upstream error
			if fail {
				upstream = errors.New("upstream failed")
			}
			evs, err := Events(context.Background(), newBuilder(), model.NewSliceStreamer(items, upstream))
			if err != nil {
				t.Logf("run: %v", err)
				return false
			}
			if err := checkStream(evs, fail); err != nil {
				t.Logf("codes=%v fail=%v: %v", codes, fail, err)
				return false
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 9)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestCheckStreamDetectsViolations(t *testing.T) {
	start := protocol.Start{MessageID: "m"}
	end := []protocol.Event{protocol.Finish{}, protocol.Done{}}
	bad := [][]protocol.Event{
		{protocol.Finish{}, protocol.Done{}},
		append([]protocol.Event{start, protocol.TextStart{ID: "a"}, protocol.TextStart{ID: "b"}}, end...),
		append([]protocol.Event{start, protocol.TextStart{ID: "a"}, protocol.TextEnd{ID: "a"}, protocol.TextStart{ID: "a"}}, end...),
		append([]protocol.Event{start, protocol.TextDelta{ID: "x"}}, end...),
		append([]protocol.Event{start, protocol.Error{}, protocol.TextDelta{}}, end...),
	}
	for i, evs := range bad {
		if checkStream(evs, false) == nil {
			t.Errorf("case %d: violation not detected", i)
		}
	}
	if err := checkStream(append([]protocol.Event{start, protocol.Error{ErrorText: "x"}}, end...), true); err != nil {
		t.Errorf("valid failed stream rejected: %v", err)
	}
}
