package builder

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"goa.design/uistream/runtime/uistream/protocol"
)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func TestStartCarriesMessageID(t *testing.T) {
	b := New(WithMessageID("m1"))
	require.Equal(t, protocol.Start{MessageID: "m1"}, b.Start())
	require.Equal(t, "m1", b.MessageID())
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	b := New()
	_, err := uuid.Parse(b.MessageID())
	require.NoError(t, err)

	start := b.OpenText()
	_, err = uuid.Parse(start.ID)
	require.NoError(t, err)
	require.NotEqual(t, b.MessageID(), start.ID)
}

func TestTextLifecycle(t *testing.T) {
	b := New(WithIDGenerator(counter()))

	require.False(t, b.TextOpen())
	start := b.OpenText()
	require.Equal(t, protocol.TextStart{ID: "b1"}, start)
	require.True(t, b.TextOpen())

	delta, ok := b.TextDelta("hi")
	require.True(t, ok)
	require.Equal(t, protocol.TextDelta{ID: "b1", Delta: "hi"}, delta)

	end, ok := b.CloseText()
	require.True(t, ok)
	require.Equal(t, protocol.TextEnd{ID: "b1"}, end)
	require.False(t, b.TextOpen())

	next := b.OpenText()
	require.Equal(t, "b2", next.ID)
}

func TestTextMisuseIsSilent(t *testing.T) {
	b := New(WithIDGenerator(counter()))

	_, ok := b.TextDelta("lost")
	require.False(t, ok)
	_, ok = b.CloseText()
	require.False(t, ok)

	b.OpenText()
	_, ok = b.CloseText()
	require.True(t, ok)
	_, ok = b.CloseText()
	require.False(t, ok)
}

func TestReasoningLifecycle(t *testing.T) {
	b := New(WithIDGenerator(counter()))

	_, ok := b.ReasoningDelta("lost", "")
	require.False(t, ok)

	start := b.OpenReasoning()
	require.Equal(t, "b1", start.ID)
	delta, ok := b.ReasoningDelta("thinking", "")
	require.True(t, ok)
	require.Equal(t, protocol.ReasoningDelta{ID: "b1", Delta: "thinking"}, delta)

	end, ok := b.CloseReasoning()
	require.True(t, ok)
	require.Equal(t, protocol.ReasoningEnd{ID: "b1"}, end)
	_, ok = b.CloseReasoning()
	require.False(t, ok)
}

func TestReasoningOverrideDoesNotTouchOpenBlock(t *testing.T) {
	b := New(WithIDGenerator(counter()))

	delta, ok := b.ReasoningDelta("x", "provider-7")
	require.True(t, ok)
	require.Equal(t, "provider-7", delta.ID)
	require.False(t, b.ReasoningOpen())

	b.OpenReasoning()
	delta, ok = b.ReasoningDelta("y", "provider-8")
	require.True(t, ok)
	require.Equal(t, "provider-8", delta.ID)

	end, ok := b.CloseReasoning()
	require.True(t, ok)
	require.Equal(t, "b1", end.ID)
}

func TestTextAndReasoningAreIndependent(t *testing.T) {
	b := New(WithIDGenerator(counter()))
	b.OpenReasoning()
	b.OpenText()
	require.True(t, b.TextOpen())
	require.True(t, b.ReasoningOpen())

	end, ok := b.CloseReasoning()
	require.True(t, ok)
	require.Equal(t, "b1", end.ID)
	require.True(t, b.TextOpen())
}

func TestFinishAndDoneArePure(t *testing.T) {
	b := New(WithIDGenerator(counter()))
	b.OpenText()
	require.Equal(t, protocol.Finish{}, b.Finish())
	require.Equal(t, protocol.Done{}, b.Done())
	require.True(t, b.TextOpen())
}
